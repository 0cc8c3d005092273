package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
)

func TestDefaultCatalogIsConsistent(t *testing.T) {
	cat := Default()

	for _, id := range []models.FieldID{
		FieldCategory, FieldServiceType, FieldDescription, FieldLocation, FieldUrgency,
		FieldRoomType, FieldSurface, FieldCondition, FieldMaterial, FieldFloor,
		FieldElevator, FieldPhotos, FieldBudget, FieldDetails,
	} {
		assert.True(t, cat.Has(id), "field %s must be declared", id)
	}

	assert.Equal(t, FieldPhotos, cat.PhotoField())
	assert.Equal(t, FieldCategory, cat.CategoryField())
	assert.True(t, cat.IsNarrative(FieldDescription))
	assert.True(t, cat.IsNarrative(FieldServiceType))
	assert.False(t, cat.IsNarrative(FieldLocation))
	assert.Equal(t, FieldCategory, cat.AlwaysRequired()[0])
}

func TestCategoryLookupIgnoresCaseAndAccents(t *testing.T) {
	cat := Default()

	rule, ok := cat.Category("electricite")
	require.True(t, ok)
	assert.Equal(t, "Électricité", rule.Name)
	assert.Equal(t, "electricite", rule.ID())

	assert.True(t, cat.IsPhotoCritical("peinture"))
	assert.False(t, cat.IsPhotoCritical("Chauffage"))
	assert.False(t, cat.IsPhotoCritical("Jardinage"))

	hints := cat.Hints("Peinture")
	assert.Equal(t, "Peinture", hints.Category)
	assert.NotEmpty(t, hints.Expertise)
	assert.True(t, cat.Hints("Jardinage").IsZero())
}

func TestLoadRejectsUnknownReferences(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "category requires unknown field",
			doc: `
photo_field: photos
category_field: cat
fields:
  - {id: cat, name: C, type: selection, required: true}
  - {id: photos, name: P, type: photos}
categories:
  - {name: Peinture, required: [nope]}
`,
		},
		{
			name: "depends on unknown field",
			doc: `
photo_field: photos
category_field: cat
fields:
  - {id: cat, name: C, type: selection, required: true}
  - {id: photos, name: P, type: photos, depends_on: ghost}
`,
		},
		{
			name: "photo field missing",
			doc: `
photo_field: photos
category_field: cat
fields:
  - {id: cat, name: C, type: selection, required: true}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnknownField), "got %v", err)
		})
	}
}

func TestLoadRejectsInvalidType(t *testing.T) {
	_, err := Load([]byte(`
photo_field: photos
category_field: cat
fields:
  - {id: cat, name: C, type: dropdown}
  - {id: photos, name: P, type: photos}
`))
	require.Error(t, err)
}

func TestProjectStateWrites(t *testing.T) {
	state := NewProjectState(Default())

	require.NoError(t, state.Set(FieldCategory, models.TextValue("Peinture")))
	assert.Equal(t, "Peinture", state.Category())

	err := state.Set("colour_of_cat", models.TextValue("tabby"))
	assert.ErrorIs(t, err, ErrUnknownField)

	require.NoError(t, state.Set(FieldRoomType, models.TextValue("")))
	assert.False(t, state.Has(FieldRoomType), "empty writes are ignored")

	filled, err := state.SetIfEmpty(FieldRoomType, models.TextValue("Cuisine"))
	require.NoError(t, err)
	assert.True(t, filled)

	filled, err = state.SetIfEmpty(FieldRoomType, models.TextValue("Salon"))
	require.NoError(t, err)
	assert.False(t, filled)
	assert.Equal(t, "Cuisine", state.Text(FieldRoomType))
}

func TestProjectStateCloneIsDeep(t *testing.T) {
	state := NewProjectState(Default())
	require.NoError(t, state.Set(FieldPhotos, models.ListValue([]string{"a.jpg"})))

	clone := state.Clone()
	require.NoError(t, clone.Set(FieldPhotos, models.ListValue([]string{"b.jpg", "c.jpg"})))
	require.NoError(t, clone.Set(FieldLocation, models.TextValue("Lyon")))

	assert.Equal(t, []string{"a.jpg"}, state.Photos())
	assert.False(t, state.Has(FieldLocation))
	assert.Equal(t, 2, clone.Len())
}
