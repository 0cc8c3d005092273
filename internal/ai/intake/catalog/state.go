package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
)

// ProjectState maps field ids to collected values. Every write is checked
// against the catalog it was created from.
type ProjectState struct {
	cat    *Catalog
	values map[models.FieldID]models.Value
}

func NewProjectState(cat *Catalog) ProjectState {
	return ProjectState{cat: cat, values: make(map[models.FieldID]models.Value)}
}

// Set stores v for id. Empty values are ignored so a field never goes back
// to missing.
func (s *ProjectState) Set(id models.FieldID, v models.Value) error {
	if s.cat == nil || !s.cat.Has(id) {
		return fmt.Errorf("set %q: %w", id, ErrUnknownField)
	}
	if v.IsEmpty() {
		return nil
	}
	if s.values == nil {
		s.values = make(map[models.FieldID]models.Value)
	}
	s.values[id] = v
	return nil
}

// SetIfEmpty stores v only when id has no value yet and reports whether it did.
func (s *ProjectState) SetIfEmpty(id models.FieldID, v models.Value) (bool, error) {
	if s.Has(id) {
		return false, nil
	}
	if err := s.Set(id, v); err != nil {
		return false, err
	}
	return !v.IsEmpty(), nil
}

func (s ProjectState) Get(id models.FieldID) (models.Value, bool) {
	v, ok := s.values[id]
	if !ok || v.IsEmpty() {
		return models.Value{}, false
	}
	return v, true
}

func (s ProjectState) Has(id models.FieldID) bool {
	_, ok := s.Get(id)
	return ok
}

// Text returns the textual form of a value, "" when missing.
func (s ProjectState) Text(id models.FieldID) string {
	v, _ := s.Get(id)
	return v.String()
}

func (s ProjectState) Category() string {
	if s.cat == nil {
		return ""
	}
	return s.Text(s.cat.CategoryField())
}

// Photos returns the photo URLs supplied so far.
func (s ProjectState) Photos() []string {
	if s.cat == nil {
		return nil
	}
	v, _ := s.Get(s.cat.PhotoField())
	return append([]string(nil), v.List...)
}

func (s ProjectState) Len() int {
	n := 0
	for _, v := range s.values {
		if !v.IsEmpty() {
			n++
		}
	}
	return n
}

func (s ProjectState) Catalog() *Catalog { return s.cat }

// Clone returns a deep copy sharing only the immutable catalog.
func (s ProjectState) Clone() ProjectState {
	out := ProjectState{cat: s.cat, values: make(map[models.FieldID]models.Value, len(s.values))}
	for id, v := range s.values {
		out.values[id] = models.Value{Text: v.Text, List: append([]string(nil), v.List...)}
	}
	return out
}

// Snapshot returns the filled fields as a plain map.
func (s ProjectState) Snapshot() map[models.FieldID]models.Value {
	out := make(map[models.FieldID]models.Value, len(s.values))
	for id, v := range s.Clone().values {
		if !v.IsEmpty() {
			out[id] = v
		}
	}
	return out
}

// Answers renders filled fields as strings, keyed by field id.
func (s ProjectState) Answers() map[string]string {
	out := make(map[string]string, len(s.values))
	for id, v := range s.values {
		if !v.IsEmpty() {
			out[string(id)] = v.String()
		}
	}
	return out
}

func (s ProjectState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}
