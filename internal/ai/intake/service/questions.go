package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/intake/textnorm"
	"github.com/Jamolkhon5/intake/internal/ai/llm"
)

// CategoryCatalog lists the categories and services offered on the marketplace.
type CategoryCatalog interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ServicesFor(ctx context.Context, category string) ([]models.Service, error)
}

// QuestionRenderer turns a field into the question shown to the user.
type QuestionRenderer struct {
	cat        *catalog.Catalog
	llm        llm.Completer
	categories CategoryCatalog
	timeout    time.Duration
	log        *zap.Logger
}

func NewQuestionRenderer(cat *catalog.Catalog, c llm.Completer, categories CategoryCatalog,
	timeout time.Duration, log *zap.Logger) *QuestionRenderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuestionRenderer{cat: cat, llm: c, categories: categories, timeout: timeout, log: log}
}

func (r *QuestionRenderer) Render(ctx context.Context, id models.FieldID, state catalog.ProjectState,
	conv models.ConversationState) models.Question {
	field, _ := r.cat.Field(id)
	return models.Question{
		FieldID:       id,
		Text:          r.text(ctx, field, state, conv),
		Options:       r.Options(ctx, field, state),
		AllowFreeText: true,
		MultiSelect:   field.Type == models.FieldTypeMultiSelect,
	}
}

// Options returns the selectable answers of a field. Categories and services
// come from the category port; other fields use their declared options.
func (r *QuestionRenderer) Options(ctx context.Context, field models.FieldMetadata, state catalog.ProjectState) []models.Option {
	switch field.ID {
	case r.cat.CategoryField():
		return r.categoryOptions(ctx)
	case catalog.FieldServiceType:
		if opts := r.serviceOptions(ctx, state.Category()); len(opts) > 0 {
			return opts
		}
	}
	if len(field.Options) == 0 {
		return nil
	}
	opts := make([]models.Option, 0, len(field.Options))
	for _, o := range field.Options {
		opts = append(opts, models.Option{ID: textnorm.Slug(o), Label: o, Value: o})
	}
	return opts
}

func (r *QuestionRenderer) categoryOptions(ctx context.Context) []models.Option {
	if r.categories != nil {
		list, err := r.categories.ListCategories(ctx)
		if err == nil && len(list) > 0 {
			opts := make([]models.Option, 0, len(list))
			for _, c := range list {
				opts = append(opts, models.Option{ID: c.ID, Label: c.Name, Value: c.Name})
			}
			return opts
		}
		r.log.Warn("questions: category catalog unavailable, using built-in list", zap.Error(err))
	}
	rules := r.cat.Categories()
	opts := make([]models.Option, 0, len(rules))
	for _, c := range rules {
		opts = append(opts, models.Option{ID: c.ID(), Label: c.Name, Value: c.Name})
	}
	return opts
}

func (r *QuestionRenderer) serviceOptions(ctx context.Context, category string) []models.Option {
	if category == "" || r.categories == nil {
		return nil
	}
	services, err := r.categories.ServicesFor(ctx, category)
	if err != nil {
		r.log.Warn("questions: services unavailable", zap.String("category", category), zap.Error(err))
		return nil
	}
	opts := make([]models.Option, 0, len(services))
	for _, s := range services {
		opts = append(opts, models.Option{ID: s.ID, Label: s.Name, Value: s.Name})
	}
	return opts
}

func (r *QuestionRenderer) text(ctx context.Context, field models.FieldMetadata, state catalog.ProjectState,
	conv models.ConversationState) string {
	if r.llm != nil {
		ctx, cancel := withTimeout(ctx, r.timeout)
		defer cancel()

		out, err := r.llm.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: questionSystemPrompt,
			UserPrompt:   questionPrompt(field, state, conv),
			Temperature:  0.4,
			MaxTokens:    120,
		})
		if err == nil && strings.TrimSpace(out) != "" {
			return strings.TrimSpace(out)
		}
		r.log.Warn("questions: completion failed, using help prompt",
			zap.String("field", string(field.ID)), zap.Error(err))
	}
	return fallbackQuestion(field, conv.Mode)
}

func fallbackQuestion(field models.FieldMetadata, mode models.Mode) string {
	text := field.HelpPrompt
	if text == "" {
		text = field.Name + " ?"
	}
	if mode == models.ModeHelping && len(field.Examples) > 0 {
		text += "\nPar exemple : " + strings.Join(field.Examples, ", ")
	}
	return text
}
