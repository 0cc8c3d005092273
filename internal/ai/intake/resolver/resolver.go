// Package resolver decides which fields a project still needs. It is the
// single source of truth for intake completeness.
package resolver

import (
	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/intake/textnorm"
)

// Required returns the always-required fields plus the fields the category
// requires, in catalog order. Unknown categories get the always-required set.
func Required(cat *catalog.Catalog, category string) []models.FieldID {
	set := make(map[models.FieldID]bool)
	for _, id := range cat.AlwaysRequired() {
		set[id] = true
	}
	if rule, ok := cat.Category(category); ok {
		for _, id := range rule.Required {
			set[id] = true
		}
	}
	return ordered(cat, set)
}

// Conditional returns the fields relevant to the project's current category
// that are not already required. A field depending on another one is only
// listed once the dependency holds.
func Conditional(cat *catalog.Catalog, state catalog.ProjectState) []models.FieldID {
	category := state.Category()
	if category == "" {
		return nil
	}
	required := make(map[models.FieldID]bool)
	for _, id := range Required(cat, category) {
		required[id] = true
	}

	var ids []models.FieldID
	for _, f := range cat.Fields() {
		if required[f.ID] || !f.RelevantFor(category) {
			continue
		}
		if !dependencyHolds(f, state) {
			continue
		}
		ids = append(ids, f.ID)
	}
	return ids
}

// Optional returns the remaining fields that never gate completion.
func Optional(cat *catalog.Catalog, state catalog.ProjectState) []models.FieldID {
	gating := make(map[models.FieldID]bool)
	for _, id := range Required(cat, state.Category()) {
		gating[id] = true
	}
	for _, id := range Conditional(cat, state) {
		gating[id] = true
	}
	var ids []models.FieldID
	for _, f := range cat.Fields() {
		if !gating[f.ID] && !f.IsRequired && !f.IsConditional {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

// Missing filters fields down to those without a value.
func Missing(fields []models.FieldID, state catalog.ProjectState) []models.FieldID {
	var out []models.FieldID
	for _, id := range fields {
		if !state.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

func MissingRequired(cat *catalog.Catalog, state catalog.ProjectState) []models.FieldID {
	return Missing(Required(cat, state.Category()), state)
}

func MissingConditional(cat *catalog.Catalog, state catalog.ProjectState) []models.FieldID {
	return Missing(Conditional(cat, state), state)
}

func IsComplete(cat *catalog.Catalog, state catalog.ProjectState) bool {
	return len(MissingRequired(cat, state)) == 0 && len(MissingConditional(cat, state)) == 0
}

// NextMissing is the deterministic fallback target: first missing required
// field, else first missing conditional field. ok is false when complete.
func NextMissing(cat *catalog.Catalog, state catalog.ProjectState) (models.FieldID, bool) {
	if ids := MissingRequired(cat, state); len(ids) > 0 {
		return ids[0], true
	}
	if ids := MissingConditional(cat, state); len(ids) > 0 {
		return ids[0], true
	}
	return "", false
}

func dependencyHolds(f models.FieldMetadata, state catalog.ProjectState) bool {
	if f.DependsOn == "" {
		return true
	}
	v, ok := state.Get(f.DependsOn)
	if !ok {
		return false
	}
	if len(f.DependsOnValues) == 0 {
		return true
	}
	got := textnorm.Fold(v.String())
	for _, want := range f.DependsOnValues {
		if textnorm.Fold(want) == got {
			return true
		}
	}
	if f.DependsOn == catalog.FieldFloor {
		return floorMatches(v.String(), f.DependsOnValues)
	}
	return false
}

// floorMatches compares floor answers by level. An open-ended value such as
// "3e étage ou plus" accepts every level from its own upwards.
func floorMatches(answer string, wants []string) bool {
	level, ok := textnorm.FloorLevel(answer)
	if !ok {
		return false
	}
	for _, want := range wants {
		l, ok := textnorm.FloorLevel(want)
		if !ok {
			continue
		}
		if l == level || (level > l && textnorm.ContainsWord(textnorm.Fold(want), "ou plus")) {
			return true
		}
	}
	return false
}

func ordered(cat *catalog.Catalog, set map[models.FieldID]bool) []models.FieldID {
	ids := make([]models.FieldID, 0, len(set))
	for _, id := range cat.IDs() {
		if set[id] {
			ids = append(ids, id)
		}
	}
	return ids
}
