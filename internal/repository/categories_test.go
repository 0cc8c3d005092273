package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	intakemodels "github.com/Jamolkhon5/intake/internal/ai/intake/models"
)

type countingSource struct {
	lists    int
	services map[string]int
	err      error
}

func (c *countingSource) ListCategories(context.Context) ([]intakemodels.Category, error) {
	c.lists++
	if c.err != nil {
		return nil, c.err
	}
	return []intakemodels.Category{{ID: "peinture", Name: "Peinture"}}, nil
}

func (c *countingSource) ServicesFor(_ context.Context, category string) ([]intakemodels.Service, error) {
	if c.services == nil {
		c.services = make(map[string]int)
	}
	c.services[category]++
	if c.err != nil {
		return nil, c.err
	}
	return []intakemodels.Service{{ID: "peinture/facade", Category: category, Name: "Peinture de façade"}}, nil
}

func TestStaticCategories(t *testing.T) {
	ctx := context.Background()
	s := NewStaticCategories(catalog.Default())

	list, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(catalog.Default().Categories()))
	assert.Equal(t, intakemodels.Category{ID: "peinture", Name: "Peinture"}, list[0])

	services, err := s.ServicesFor(ctx, "electricite")
	require.NoError(t, err)
	require.NotEmpty(t, services)
	assert.Equal(t, "Électricité", services[0].Category)
	assert.Equal(t, "electricite/mise-aux-normes", services[0].ID)

	services, err = s.ServicesFor(ctx, "Jardinage")
	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestCachedCategories(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{}
	c, err := NewCachedCategories(src, 8)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		list, err := c.ListCategories(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		services, err := c.ServicesFor(ctx, "Peinture")
		require.NoError(t, err)
		assert.Len(t, services, 1)
	}
	assert.Equal(t, 1, src.lists)
	assert.Equal(t, 1, src.services["Peinture"])

	_, err = c.ServicesFor(ctx, " peinture ")
	require.NoError(t, err)
	assert.Zero(t, src.services[" peinture "], "lookups are case-insensitive")

	c.Purge()
	_, err = c.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.lists)
}

func TestCachedCategoriesDoNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{err: errors.New("db down")}
	c, err := NewCachedCategories(src, 0)
	require.NoError(t, err)

	_, err = c.ListCategories(ctx)
	assert.Error(t, err)

	src.err = nil
	list, err := c.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 2, src.lists)
}
