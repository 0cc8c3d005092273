package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/intake/resolver"
	"github.com/Jamolkhon5/intake/internal/ai/intake/summary"
	"github.com/Jamolkhon5/intake/internal/ai/intake/validator"
	"github.com/Jamolkhon5/intake/internal/ai/llm"
	appmodels "github.com/Jamolkhon5/intake/internal/models"
)

const defaultTimeout = 15 * time.Second

// Session is everything the engine knows about one conversation.
type Session struct {
	ID           string
	Conversation models.ConversationState
	Project      catalog.ProjectState
	Estimate     *models.EstimatedPrice
	Summary      *summary.Summary
	Transcript   []appmodels.ChatMessage
}

func NewSession(id string, cat *catalog.Catalog) Session {
	return Session{
		ID:           id,
		Conversation: models.NewConversationState(),
		Project:      catalog.NewProjectState(cat),
	}
}

// Clone returns a copy that shares no mutable data with s.
func (s Session) Clone() Session {
	out := s
	out.Project = s.Project.Clone()
	out.Transcript = append([]appmodels.ChatMessage(nil), s.Transcript...)
	if s.Estimate != nil {
		e := *s.Estimate
		e.Factors = append([]string(nil), s.Estimate.Factors...)
		out.Estimate = &e
	}
	if s.Summary != nil {
		sum := *s.Summary
		sum.Lines = append([]summary.Line(nil), s.Summary.Lines...)
		sum.Estimate = out.Estimate
		out.Summary = &sum
	}
	out.Conversation.ExpertContext.Vocabulary = append([]string(nil), s.Conversation.ExpertContext.Vocabulary...)
	out.Conversation.ExpertContext.KeyPoints = append([]string(nil), s.Conversation.ExpertContext.KeyPoints...)
	return out
}

// Input is one user turn.
type Input struct {
	Text   string
	Photos []string
}

type TurnResult struct {
	OutputText        string                   `json:"output_text"`
	IsComplete        bool                     `json:"is_complete"`
	CurrentQuestion   *models.Question         `json:"current_question,omitempty"`
	ConversationState models.ConversationState `json:"conversation_state"`
	FinalAnswers      map[string]string        `json:"final_answers,omitempty"`
	EstimatedPrice    *models.EstimatedPrice   `json:"estimated_price,omitempty"`
	Options           []models.Option          `json:"options,omitempty"`
	Messages          []appmodels.ChatMessage  `json:"messages,omitempty"`
	Validation        models.ValidationState   `json:"validation"`
	Summary           *summary.Summary         `json:"summary,omitempty"`
}

// Ports are the external capabilities of the engine. Any of them may be nil.
type Ports struct {
	Completer  llm.Completer
	Vision     llm.VisionAnalyzer
	Categories CategoryCatalog
}

type Option func(*Engine)

func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// Engine drives the intake dialogue. It holds no per-conversation state and
// is safe for concurrent use across sessions.
type Engine struct {
	cat     *catalog.Catalog
	llm     llm.Completer
	vision  llm.VisionAnalyzer
	timeout time.Duration
	log     *zap.Logger

	classifier *IntentAnalyzer
	extractor  *StateExtractor
	planner    *Planner
	questions  *QuestionRenderer
}

func NewEngine(cat *catalog.Catalog, ports Ports, opts ...Option) *Engine {
	e := &Engine{
		cat:     cat,
		llm:     ports.Completer,
		vision:  ports.Vision,
		timeout: defaultTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.classifier = NewIntentAnalyzer(ports.Completer, e.timeout, e.log)
	e.extractor = NewStateExtractor(cat, e.log)
	e.planner = NewPlanner(cat, ports.Completer, e.timeout, e.log)
	e.questions = NewQuestionRenderer(cat, ports.Completer, ports.Categories, e.timeout, e.log)
	return e
}

func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

func (e *Engine) NewSession(id string) Session {
	return NewSession(id, e.cat)
}

// Step applies one user turn to prev and returns the next session. prev is
// not modified.
func (e *Engine) Step(ctx context.Context, prev Session, in Input) (Session, TurnResult) {
	s := prev.Clone()
	res := TurnResult{Validation: models.NewValidationState()}

	text := strings.TrimSpace(in.Text)
	photos := cleanPhotos(in.Photos)
	res.Messages = userMessages(s.ID, text, photos)

	if s.Conversation.IsComplete {
		e.completed(&s, &res)
		return e.commit(s, res)
	}

	photoField := e.cat.PhotoField()
	if len(photos) > 0 {
		switch {
		case s.Conversation.CurrentFocus == photoField:
			e.write(&s, photoField, models.ListValue(photos))
			s.Conversation.CurrentFocus = ""
		case !s.Project.Has(photoField):
			e.write(&s, photoField, models.ListValue(photos))
		}
	}

	if text != "" {
		e.interpret(ctx, &s, text, &res)
	}

	d := e.decide(ctx, &s, text)
	e.log.Debug("engine: decision",
		zap.String("session", s.ID),
		zap.String("action", string(d.Action)),
		zap.String("target", string(d.Target)),
		zap.String("reasoning", d.Reasoning))
	e.execute(ctx, &s, d, text, &res)

	return e.commit(s, res)
}

// Begin asks the opening question of a fresh session.
func (e *Engine) Begin(ctx context.Context, prev Session) (Session, TurnResult) {
	s := prev.Clone()
	res := TurnResult{Validation: models.NewValidationState()}
	if s.Conversation.IsComplete {
		e.completed(&s, &res)
		return e.commit(s, res)
	}
	e.execute(ctx, &s, e.decide(ctx, &s, ""), "", &res)
	return e.commit(s, res)
}

// Focus moves the conversation to id, re-opening it when it was complete.
// The stored value, if any, is kept until the user answers again.
func (e *Engine) Focus(ctx context.Context, prev Session, id models.FieldID) (Session, TurnResult, error) {
	if !e.cat.Has(id) {
		return prev, TurnResult{}, fmt.Errorf("focus %q: %w", id, catalog.ErrUnknownField)
	}
	s := prev.Clone()
	s.Conversation.IsComplete = false
	s.Estimate = nil
	s.Summary = nil
	s.Conversation.CurrentFocus = id

	res := TurnResult{Validation: models.NewValidationState()}
	q := e.questions.Render(ctx, id, s.Project, s.Conversation)
	e.ask(&s, q, &res)
	s, res = e.commit(s, res)
	return s, res, nil
}

// interpret classifies the utterance and records what it carries.
func (e *Engine) interpret(ctx context.Context, s *Session, text string, res *TurnResult) {
	conv := &s.Conversation
	focus, _ := e.cat.Field(conv.CurrentFocus)

	intent := e.classifier.Classify(ctx, text, ClassifyContext{
		Focus:    focus,
		Category: s.Project.Category(),
		Expert:   conv.ExpertContext,
	})
	conv.LastIntent = intent

	switch {
	case intent.IsAnswer():
		conv.Mode = models.ModeGuided
		conv.HelpCount = 0
		if conv.CurrentFocus != "" {
			e.answer(s, focus, text, res)
		}
	case intent == models.IntentNeedHelp || intent == models.IntentUncertainty:
		conv.Mode = models.ModeHelping
		conv.HelpCount++
	case intent == models.IntentQuestionBack:
		conv.Mode = models.ModeFree
	case intent == models.IntentProvidesPhotos:
		photoField, _ := e.cat.Field(e.cat.PhotoField())
		if v, _ := validator.Coerce(photoField, text); len(v.List) > 0 && !s.Project.Has(photoField.ID) {
			e.write(s, photoField.ID, v)
		}
	}
}

// answer stores text as the value of the focus field.
func (e *Engine) answer(s *Session, field models.FieldMetadata, text string, res *TurnResult) {
	value, warnings := validator.Coerce(field, text)
	if field.ID == e.cat.CategoryField() {
		var known bool
		if value, known = e.canonicalCategory(value); !known {
			warnings = append(warnings, "catégorie non reconnue, les questions génériques seront posées")
		}
	}
	if len(warnings) > 0 {
		res.Validation.Warnings[string(field.ID)] = strings.Join(warnings, " ; ")
	}
	e.write(s, field.ID, value)

	if filled := e.extractor.Extract(&s.Project, field.ID, text); len(filled) > 0 {
		e.log.Debug("engine: extracted fields", zap.String("session", s.ID), zap.Any("fields", filled))
	}
	if field.ID == e.cat.CategoryField() {
		s.Conversation.ExpertContext = e.cat.Hints(s.Project.Category())
	}
}

func (e *Engine) canonicalCategory(v models.Value) (models.Value, bool) {
	rules := e.cat.Categories()
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.Name)
	}
	if name, ok := validator.MatchOption(names, v.Text); ok {
		return models.TextValue(name), true
	}
	return v, false
}

func (e *Engine) write(s *Session, id models.FieldID, v models.Value) {
	if err := s.Project.Set(id, v); err != nil {
		e.log.Error("engine: write rejected", zap.String("session", s.ID), zap.Error(err))
	}
}

// decide picks the next action: validate when complete, then the
// anti-repetition guard and the photo gate, then the planner, then the
// deterministic fallback.
func (e *Engine) decide(ctx context.Context, s *Session, utterance string) Decision {
	conv := &s.Conversation
	if resolver.IsComplete(e.cat, s.Project) {
		return Decision{Action: models.ActionValidate, Reasoning: "all fields collected"}
	}

	guarded := false
	if conv.CurrentFocus != "" && s.Project.Has(conv.CurrentFocus) {
		conv.CurrentFocus = ""
		guarded = true
	}

	if conv.CurrentFocus == "" && e.needsPhotos(s.Project) {
		return Decision{Action: models.ActionRequestPhotos, Target: e.cat.PhotoField(), Reasoning: "photo-critical category"}
	}
	if guarded {
		return fallbackDecision(e.cat, s.Project)
	}

	if d, ok := e.planner.Plan(ctx, s.Project, *conv, utterance); ok {
		if d.Target == "" && d.Action != models.ActionValidate && d.Action != models.ActionRequestPhotos {
			d.Target = e.defaultTarget(s)
		}
		return d
	}

	// An unanswered focus is asked again before moving on.
	if conv.CurrentFocus != "" {
		return Decision{Action: models.ActionAskNext, Target: conv.CurrentFocus, Reasoning: "focus still unanswered"}
	}
	return fallbackDecision(e.cat, s.Project)
}

func (e *Engine) defaultTarget(s *Session) models.FieldID {
	if s.Conversation.CurrentFocus != "" {
		return s.Conversation.CurrentFocus
	}
	return fallbackDecision(e.cat, s.Project).Target
}

func (e *Engine) needsPhotos(state catalog.ProjectState) bool {
	return !state.Has(e.cat.PhotoField()) &&
		e.cat.IsPhotoCritical(state.Category()) &&
		state.Has(catalog.FieldDescription) &&
		state.Has(catalog.FieldServiceType)
}

// commit records the turn in the session transcript and snapshots the state.
func (e *Engine) commit(s Session, res TurnResult) (Session, TurnResult) {
	for i := range res.Messages {
		res.Messages[i].SessionID = s.ID
	}
	s.Transcript = append(s.Transcript, res.Messages...)
	res.IsComplete = s.Conversation.IsComplete
	res.ConversationState = s.Conversation
	res.Validation.IsValid = len(res.Validation.Errors) == 0
	return s, res
}

func userMessages(sessionID, text string, photos []string) []appmodels.ChatMessage {
	var msgs []appmodels.ChatMessage
	if text != "" {
		msgs = append(msgs, appmodels.NewChatMessage(sessionID, appmodels.RoleUser, text))
	}
	if len(photos) > 0 {
		msg := appmodels.NewChatMessage(sessionID, appmodels.RolePhotos, fmt.Sprintf("%d photo(s)", len(photos)))
		msg.PhotoURLs = photos
		msgs = append(msgs, msg)
	}
	return msgs
}

func cleanPhotos(photos []string) []string {
	out := make([]string, 0, len(photos))
	seen := make(map[string]bool, len(photos))
	for _, p := range photos {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
