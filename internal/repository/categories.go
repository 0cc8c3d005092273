package repository

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	intakemodels "github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/intake/textnorm"
)

// CategorySource is the category port of the intake engine.
type CategorySource interface {
	ListCategories(ctx context.Context) ([]intakemodels.Category, error)
	ServicesFor(ctx context.Context, category string) ([]intakemodels.Service, error)
}

// StaticCategories serves the categories declared in the field catalog.
type StaticCategories struct {
	cat *catalog.Catalog
}

func NewStaticCategories(cat *catalog.Catalog) *StaticCategories {
	return &StaticCategories{cat: cat}
}

func (s *StaticCategories) ListCategories(context.Context) ([]intakemodels.Category, error) {
	rules := s.cat.Categories()
	out := make([]intakemodels.Category, 0, len(rules))
	for _, r := range rules {
		out = append(out, intakemodels.Category{ID: r.ID(), Name: r.Name})
	}
	return out, nil
}

func (s *StaticCategories) ServicesFor(_ context.Context, category string) ([]intakemodels.Service, error) {
	rule, ok := s.cat.Category(category)
	if !ok {
		return nil, nil
	}
	return servicesOf(rule), nil
}

func servicesOf(rule catalog.CategoryRule) []intakemodels.Service {
	out := make([]intakemodels.Service, 0, len(rule.Services))
	for _, name := range rule.Services {
		out = append(out, intakemodels.Service{
			ID:       rule.ID() + "/" + textnorm.Slug(name),
			Category: rule.Name,
			Name:     name,
		})
	}
	return out
}

// PostgresCategories reads categories and services from Postgres.
type PostgresCategories struct {
	db *sqlx.DB
}

func NewPostgresCategories(db *sqlx.DB) *PostgresCategories {
	return &PostgresCategories{db: db}
}

func (p *PostgresCategories) ListCategories(ctx context.Context) ([]intakemodels.Category, error) {
	var out []intakemodels.Category
	if err := p.db.SelectContext(ctx, &out, `SELECT id, name FROM intake_categories ORDER BY position, name`); err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	return out, nil
}

func (p *PostgresCategories) ServicesFor(ctx context.Context, category string) ([]intakemodels.Service, error) {
	query := `
        SELECT s.id, s.category, s.name
        FROM intake_services s
        WHERE lower(s.category) = lower($1)
        ORDER BY s.position, s.name`

	var out []intakemodels.Service
	if err := p.db.SelectContext(ctx, &out, query, category); err != nil {
		return nil, fmt.Errorf("select services of %q: %w", category, err)
	}
	return out, nil
}

// Seed fills empty category tables from the field catalog.
func (p *PostgresCategories) Seed(ctx context.Context, cat *catalog.Catalog) error {
	var n int
	if err := p.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM intake_categories`); err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for i, rule := range cat.Categories() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO intake_categories (id, name, position) VALUES ($1, $2, $3)`,
			rule.ID(), rule.Name, i); err != nil {
			return fmt.Errorf("insert category %q: %w", rule.Name, err)
		}
		for j, s := range servicesOf(rule) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO intake_services (id, category, name, position) VALUES ($1, $2, $3, $4)`,
				s.ID, s.Category, s.Name, j); err != nil {
				return fmt.Errorf("insert service %q: %w", s.Name, err)
			}
		}
	}
	return tx.Commit()
}

const allCategoriesKey = "\x00categories"

type cacheEntry struct {
	categories []intakemodels.Category
	services   []intakemodels.Service
}

// CachedCategories keeps recent lookups of a slower source in an LRU cache.
// Errors are not cached.
type CachedCategories struct {
	source CategorySource
	cache  *lru.Cache[string, cacheEntry]
}

func NewCachedCategories(source CategorySource, size int) (*CachedCategories, error) {
	if size <= 0 {
		size = 64
	}
	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create category cache: %w", err)
	}
	return &CachedCategories{source: source, cache: cache}, nil
}

func (c *CachedCategories) ListCategories(ctx context.Context) ([]intakemodels.Category, error) {
	if e, ok := c.cache.Get(allCategoriesKey); ok {
		return append([]intakemodels.Category(nil), e.categories...), nil
	}
	list, err := c.source.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Add(allCategoriesKey, cacheEntry{categories: list})
	return append([]intakemodels.Category(nil), list...), nil
}

func (c *CachedCategories) ServicesFor(ctx context.Context, category string) ([]intakemodels.Service, error) {
	key := strings.ToLower(strings.TrimSpace(category))
	if e, ok := c.cache.Get(key); ok {
		return append([]intakemodels.Service(nil), e.services...), nil
	}
	list, err := c.source.ServicesFor(ctx, category)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cacheEntry{services: list})
	return append([]intakemodels.Service(nil), list...), nil
}

// Purge drops every cached entry.
func (c *CachedCategories) Purge() { c.cache.Purge() }
