package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
)

func TestRequiredAlwaysIncludesBaseSet(t *testing.T) {
	cat := catalog.Default()
	base := cat.AlwaysRequired()
	require.NotEmpty(t, base)

	categories := []string{"", "Jardinage"}
	for _, rule := range cat.Categories() {
		categories = append(categories, rule.Name)
	}

	for _, c := range categories {
		got := Required(cat, c)
		assert.NotEmpty(t, got, "category %q", c)
		assert.Subset(t, got, base, "category %q", c)
	}
}

func TestRequiredAddsCategoryFieldsInCatalogOrder(t *testing.T) {
	cat := catalog.Default()

	got := Required(cat, "Peinture")
	assert.Equal(t, []models.FieldID{
		catalog.FieldCategory, catalog.FieldServiceType, catalog.FieldDescription,
		catalog.FieldLocation, catalog.FieldUrgency, catalog.FieldSurface,
	}, got)
}

func TestConditionalExcludesRequiredAndWaitsForDependency(t *testing.T) {
	cat := catalog.Default()
	state := catalog.NewProjectState(cat)

	assert.Empty(t, Conditional(cat, state), "no category, nothing conditional")

	require.NoError(t, state.Set(catalog.FieldCategory, models.TextValue("Peinture")))
	got := Conditional(cat, state)
	assert.Contains(t, got, catalog.FieldRoomType)
	assert.Contains(t, got, catalog.FieldCondition)
	assert.Contains(t, got, catalog.FieldFloor)
	assert.NotContains(t, got, catalog.FieldSurface, "already required for Peinture")
	assert.NotContains(t, got, catalog.FieldElevator, "floor not known yet")

	require.NoError(t, state.Set(catalog.FieldFloor, models.TextValue("Rez-de-chaussée")))
	assert.NotContains(t, Conditional(cat, state), catalog.FieldElevator)

	require.NoError(t, state.Set(catalog.FieldFloor, models.TextValue("3e étage ou plus")))
	assert.Contains(t, Conditional(cat, state), catalog.FieldElevator)
}

func TestElevatorFollowsFloorLevel(t *testing.T) {
	cat := catalog.Default()

	tests := []struct {
		floor string
		want  bool
	}{
		{"3ème étage", true},
		{"5e étage", true},
		{"deuxième étage", true},
		{"1er", true},
		{"rdc", false},
		{"je ne sais pas", false},
	}
	for _, tt := range tests {
		t.Run(tt.floor, func(t *testing.T) {
			state := catalog.NewProjectState(cat)
			require.NoError(t, state.Set(catalog.FieldCategory, models.TextValue("Peinture")))
			require.NoError(t, state.Set(catalog.FieldFloor, models.TextValue(tt.floor)))
			if tt.want {
				assert.Contains(t, Conditional(cat, state), catalog.FieldElevator)
			} else {
				assert.NotContains(t, Conditional(cat, state), catalog.FieldElevator)
			}
		})
	}
}

func TestCompleteness(t *testing.T) {
	cat := catalog.Default()
	state := catalog.NewProjectState(cat)
	assert.False(t, IsComplete(cat, state))

	next, ok := NextMissing(cat, state)
	require.True(t, ok)
	assert.Equal(t, catalog.FieldCategory, next)

	answers := map[models.FieldID]string{
		catalog.FieldCategory:    "Chauffage",
		catalog.FieldServiceType: "Remplacement de chaudière",
		catalog.FieldDescription: "Vieille chaudière fioul à remplacer",
		catalog.FieldLocation:    "Nantes",
		catalog.FieldUrgency:     "Dans le mois",
	}
	for id, v := range answers {
		require.NoError(t, state.Set(id, models.TextValue(v)))
	}
	assert.Empty(t, MissingRequired(cat, state))

	next, ok = NextMissing(cat, state)
	require.True(t, ok)
	assert.Equal(t, catalog.FieldRoomType, next)

	require.NoError(t, state.Set(catalog.FieldRoomType, models.TextValue("Salon")))
	assert.True(t, IsComplete(cat, state))
	_, ok = NextMissing(cat, state)
	assert.False(t, ok)
}

func TestOptionalNeverGates(t *testing.T) {
	cat := catalog.Default()
	state := catalog.NewProjectState(cat)
	require.NoError(t, state.Set(catalog.FieldCategory, models.TextValue("Peinture")))

	opt := Optional(cat, state)
	assert.ElementsMatch(t, []models.FieldID{catalog.FieldPhotos, catalog.FieldBudget, catalog.FieldDetails}, opt)
}
