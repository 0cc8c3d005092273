package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/intake/resolver"
	"github.com/Jamolkhon5/intake/internal/ai/llm"
)

var errNoJSON = errors.New("planner: no JSON object in reply")

// Decision is the next action of the engine and the field it applies to.
type Decision struct {
	Action    models.Action
	Target    models.FieldID
	Reasoning string
}

type plannerReply struct {
	Action      string `json:"action"`
	TargetField string `json:"target_field"`
	Reasoning   string `json:"reasoning"`
}

// Planner asks the completion port for the next action and keeps only
// decisions that are consistent with the project state.
type Planner struct {
	cat     *catalog.Catalog
	llm     llm.Completer
	timeout time.Duration
	log     *zap.Logger
}

func NewPlanner(cat *catalog.Catalog, c llm.Completer, timeout time.Duration, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{cat: cat, llm: c, timeout: timeout, log: log}
}

// Plan returns false when no usable decision came back.
func (p *Planner) Plan(ctx context.Context, state catalog.ProjectState, conv models.ConversationState, utterance string) (Decision, bool) {
	if p.llm == nil {
		return Decision{}, false
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	missing := resolver.Missing(append(resolver.Required(p.cat, state.Category()), resolver.Conditional(p.cat, state)...), state)
	reply, err := p.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: plannerSystemPrompt,
		UserPrompt:   plannerPrompt(p.cat, state, conv, missing, utterance),
		Temperature:  0.2,
		MaxTokens:    200,
	})
	if err != nil {
		p.log.Warn("planner: completion failed", zap.Error(err))
		return Decision{}, false
	}

	d, err := parseDecision(reply)
	if err != nil {
		p.log.Warn("planner: unusable reply", zap.Error(err))
		return Decision{}, false
	}
	if err := p.check(d, state); err != nil {
		p.log.Debug("planner: decision rejected", zap.Error(err))
		return Decision{}, false
	}
	return d, true
}

func (p *Planner) check(d Decision, state catalog.ProjectState) error {
	if d.Target != "" {
		if !p.cat.Has(d.Target) {
			return fmt.Errorf("target %q: %w", d.Target, catalog.ErrUnknownField)
		}
		if state.Has(d.Target) {
			return fmt.Errorf("target %q already answered", d.Target)
		}
	}
	switch d.Action {
	case models.ActionRequestPhotos:
		if state.Has(p.cat.PhotoField()) {
			return errors.New("photos already answered")
		}
	case models.ActionValidate:
		if !resolver.IsComplete(p.cat, state) {
			return errors.New("validate while fields are missing")
		}
	case models.ActionAskNext:
		if d.Target == "" {
			return errors.New("ask_next without target")
		}
	}
	return nil
}

// parseDecision extracts the JSON object of a reply, tolerating code fences
// and surrounding prose.
func parseDecision(reply string) (Decision, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Decision{}, errNoJSON
	}

	var r plannerReply
	if err := json.Unmarshal([]byte(reply[start:end+1]), &r); err != nil {
		return Decision{}, fmt.Errorf("planner: decode reply: %w", err)
	}
	action, ok := models.ParseAction(strings.TrimSpace(r.Action))
	if !ok {
		return Decision{}, fmt.Errorf("planner: unknown action %q", r.Action)
	}
	return Decision{
		Action:    action,
		Target:    models.FieldID(strings.TrimSpace(r.TargetField)),
		Reasoning: r.Reasoning,
	}, nil
}

// fallbackDecision asks for the first missing required field, then the first
// missing conditional one, and validates once nothing is missing.
func fallbackDecision(cat *catalog.Catalog, state catalog.ProjectState) Decision {
	if id, ok := resolver.NextMissing(cat, state); ok {
		return Decision{Action: models.ActionAskNext, Target: id}
	}
	return Decision{Action: models.ActionValidate}
}
