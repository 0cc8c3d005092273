package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
)

func field(t *testing.T, id models.FieldID) models.FieldMetadata {
	t.Helper()
	f, ok := catalog.Default().Field(id)
	require.True(t, ok, "field %s", id)
	return f
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     string
		warnings int
	}{
		{name: "plain", raw: "20", want: "20"},
		{name: "with unit", raw: "environ 20 m²", want: "20"},
		{name: "decimal comma", raw: "12,5 m2", want: "12.5"},
		{name: "thousands separator", raw: "1 200 m²", want: "1200"},
		{name: "two numbers keep the first", raw: "12 15 m²", want: "12"},
		{name: "range keeps the lower bound", raw: "entre 12 et 15", want: "12"},
		{name: "out of bounds", raw: "0", want: "0", warnings: 1},
		{name: "not a number", raw: "je ne sais pas", want: "je ne sais pas", warnings: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, warnings := Coerce(field(t, catalog.FieldSurface), tt.raw)
			assert.Equal(t, tt.want, v.Text)
			assert.Len(t, warnings, tt.warnings)
		})
	}
}

func TestCoerceSelection(t *testing.T) {
	tests := []struct {
		id   models.FieldID
		raw  string
		want string
	}{
		{catalog.FieldCondition, "mauvais etat", "Mauvais état"},
		{catalog.FieldCondition, "  c'est en mauvais état  ", "Mauvais état"},
		{catalog.FieldUrgency, "urgent", "Urgent (sous 1 semaine)"},
		{catalog.FieldElevator, "non", "Non"},
		{catalog.FieldRoomType, "la salle de bain", "Salle de bain"},
		{catalog.FieldRoomType, "grenier aménagé", "grenier aménagé"},
		{catalog.FieldFloor, "3ème étage", "3e étage ou plus"},
		{catalog.FieldFloor, "5e étage", "3e étage ou plus"},
		{catalog.FieldFloor, "deuxième étage", "2e étage"},
		{catalog.FieldFloor, "au premier", "1er étage"},
		{catalog.FieldFloor, "rdc", "Rez-de-chaussée"},
		{catalog.FieldUrgency, "très urgent", "très urgent"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, warnings := Coerce(field(t, tt.id), tt.raw)
			assert.Equal(t, tt.want, v.Text)
			assert.Empty(t, warnings)
		})
	}
}

func TestCoerceText(t *testing.T) {
	v, warnings := Coerce(field(t, catalog.FieldDescription), "  Repeindre le salon  ")
	assert.Equal(t, "Repeindre le salon", v.Text)
	assert.Empty(t, warnings)

	long := make([]rune, 2100)
	for i := range long {
		long[i] = 'é'
	}
	v, warnings = Coerce(field(t, catalog.FieldDescription), string(long))
	assert.Equal(t, string(long), v.Text, "too long values are recorded as-is")
	assert.Len(t, warnings, 1)
}

func TestCoercePhotos(t *testing.T) {
	v, _ := Coerce(field(t, catalog.FieldPhotos), "https://cdn.example.com/a.jpg et https://cdn.example.com/b.jpg")
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}, v.List)

	v, _ = Coerce(field(t, catalog.FieldPhotos), "pas de photo")
	assert.Equal(t, "pas de photo", v.Text)
	assert.Empty(t, v.List)
}

func TestCoerceEmpty(t *testing.T) {
	v, warnings := Coerce(field(t, catalog.FieldLocation), "   ")
	assert.True(t, v.IsEmpty())
	assert.Empty(t, warnings)
}

func TestValidateProjectState(t *testing.T) {
	state := catalog.NewProjectState(catalog.Default())
	require.NoError(t, state.Set(catalog.FieldSurface, models.TextValue("9000")))
	require.NoError(t, state.Set(catalog.FieldLocation, models.TextValue("Lyon")))

	result := ValidateProjectState(state)
	assert.True(t, result.IsValid)
	assert.Contains(t, result.Warnings, string(catalog.FieldSurface))
	assert.NotContains(t, result.Warnings, string(catalog.FieldLocation))
}
