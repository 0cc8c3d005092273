// Package catalog holds the static description of every field the intake
// engine can collect, the per-category requirement table and the category
// domain hints. It is loaded once at process start and never mutated.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/intake/textnorm"
)

// Field ids the engine refers to directly.
const (
	FieldCategory    models.FieldID = "project_category"
	FieldServiceType models.FieldID = "service_type"
	FieldDescription models.FieldID = "project_description"
	FieldLocation    models.FieldID = "location"
	FieldUrgency     models.FieldID = "urgency"
	FieldRoomType    models.FieldID = "room_type"
	FieldSurface     models.FieldID = "surface_area"
	FieldCondition   models.FieldID = "current_state"
	FieldMaterial    models.FieldID = "material_preference"
	FieldFloor       models.FieldID = "floor_level"
	FieldElevator    models.FieldID = "has_elevator"
	FieldPhotos      models.FieldID = "photos_uploaded"
	FieldBudget      models.FieldID = "budget"
	FieldDetails     models.FieldID = "additional_details"
)

var ErrUnknownField = errors.New("catalog: unknown field")

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// CategoryRule is the catalog entry of one project category.
type CategoryRule struct {
	Name          string             `yaml:"name"`
	Required      []models.FieldID   `yaml:"required"`
	PhotoCritical bool               `yaml:"photo_critical"`
	Services      []string           `yaml:"services"`
	Hints         models.DomainHints `yaml:"hints"`
}

// ID is the slug used for option ids.
func (r CategoryRule) ID() string {
	return textnorm.Slug(r.Name)
}

type document struct {
	PhotoField      models.FieldID         `yaml:"photo_field"`
	CategoryField   models.FieldID         `yaml:"category_field"`
	NarrativeFields []models.FieldID       `yaml:"narrative_fields"`
	Fields          []models.FieldMetadata `yaml:"fields"`
	Categories      []CategoryRule         `yaml:"categories"`
}

type Catalog struct {
	photoField      models.FieldID
	categoryField   models.FieldID
	narrativeFields []models.FieldID

	fields     []models.FieldMetadata
	byID       map[models.FieldID]int
	categories []CategoryRule
	byCategory map[string]int
}

// Load parses a catalog document and checks that every field id it
// references is declared.
func Load(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}

	c := &Catalog{
		photoField:      doc.PhotoField,
		categoryField:   doc.CategoryField,
		narrativeFields: doc.NarrativeFields,
		fields:          doc.Fields,
		byID:            make(map[models.FieldID]int, len(doc.Fields)),
		categories:      doc.Categories,
		byCategory:      make(map[string]int, len(doc.Categories)),
	}

	for i, f := range c.fields {
		if f.ID == "" {
			return nil, fmt.Errorf("catalog: field #%d has no id", i)
		}
		if _, dup := c.byID[f.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate field %q", f.ID)
		}
		if !f.Type.Valid() {
			return nil, fmt.Errorf("catalog: field %q has invalid type %q", f.ID, f.Type)
		}
		c.byID[f.ID] = i
	}

	for i, f := range c.fields {
		if f.DependsOn != "" && !c.Has(f.DependsOn) {
			return nil, fmt.Errorf("catalog: field %q depends on %w %q", f.ID, ErrUnknownField, f.DependsOn)
		}
		if f.IsRequired && f.IsConditional {
			return nil, fmt.Errorf("catalog: field %q cannot be both required and conditional", f.ID)
		}
		for j := range f.Categories {
			c.fields[i].Categories[j] = strings.TrimSpace(f.Categories[j])
		}
	}

	for _, id := range append([]models.FieldID{c.photoField, c.categoryField}, c.narrativeFields...) {
		if !c.Has(id) {
			return nil, fmt.Errorf("catalog: %w %q", ErrUnknownField, id)
		}
	}
	if c.fields[c.byID[c.photoField]].Type != models.FieldTypePhotos {
		return nil, fmt.Errorf("catalog: photo field %q must have type photos", c.photoField)
	}

	for i := range c.categories {
		rule := &c.categories[i]
		rule.Name = strings.TrimSpace(rule.Name)
		if rule.Name == "" {
			return nil, fmt.Errorf("catalog: category #%d has no name", i)
		}
		key := textnorm.Fold(rule.Name)
		if _, dup := c.byCategory[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate category %q", rule.Name)
		}
		for _, id := range rule.Required {
			if !c.Has(id) {
				return nil, fmt.Errorf("catalog: category %q requires %w %q", rule.Name, ErrUnknownField, id)
			}
		}
		rule.Hints.Category = rule.Name
		c.byCategory[key] = i
	}

	for _, f := range c.fields {
		for _, name := range f.Categories {
			if _, ok := c.byCategory[textnorm.Fold(name)]; !ok {
				return nil, fmt.Errorf("catalog: field %q lists unknown category %q", f.ID, name)
			}
		}
	}

	return c, nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the embedded catalog. It panics if the embedded document
// is invalid, which is a build defect.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(defaultCatalogYAML)
		if err != nil {
			panic(err)
		}
		defaultCat = c
	})
	return defaultCat
}

func (c *Catalog) Has(id models.FieldID) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *Catalog) Field(id models.FieldID) (models.FieldMetadata, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.FieldMetadata{}, false
	}
	return c.fields[i], true
}

// Fields returns the catalog in declaration order.
func (c *Catalog) Fields() []models.FieldMetadata {
	return append([]models.FieldMetadata(nil), c.fields...)
}

func (c *Catalog) IDs() []models.FieldID {
	ids := make([]models.FieldID, len(c.fields))
	for i, f := range c.fields {
		ids[i] = f.ID
	}
	return ids
}

// Index is the declaration position of a field, -1 when unknown.
func (c *Catalog) Index(id models.FieldID) int {
	if i, ok := c.byID[id]; ok {
		return i
	}
	return -1
}

func (c *Catalog) AlwaysRequired() []models.FieldID {
	var ids []models.FieldID
	for _, f := range c.fields {
		if f.IsRequired {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

func (c *Catalog) PhotoField() models.FieldID    { return c.photoField }
func (c *Catalog) CategoryField() models.FieldID { return c.categoryField }

func (c *Catalog) IsNarrative(id models.FieldID) bool {
	for _, n := range c.narrativeFields {
		if n == id {
			return true
		}
	}
	return false
}

// Category looks a category up by name, ignoring case and accents.
func (c *Catalog) Category(name string) (CategoryRule, bool) {
	i, ok := c.byCategory[textnorm.Fold(name)]
	if !ok {
		return CategoryRule{}, false
	}
	return c.categories[i], true
}

func (c *Catalog) Categories() []CategoryRule {
	return append([]CategoryRule(nil), c.categories...)
}

func (c *Catalog) IsPhotoCritical(category string) bool {
	rule, ok := c.Category(category)
	return ok && rule.PhotoCritical
}

// Hints returns the expert context of a category, zero when unknown.
func (c *Catalog) Hints(category string) models.DomainHints {
	rule, ok := c.Category(category)
	if !ok {
		return models.DomainHints{}
	}
	return rule.Hints
}
