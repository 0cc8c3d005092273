package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/intake/pricing"
	"github.com/Jamolkhon5/intake/internal/ai/intake/summary"
	"github.com/Jamolkhon5/intake/internal/ai/llm"
	appmodels "github.com/Jamolkhon5/intake/internal/models"
)

const (
	photoRequestText = "Pour affiner l'estimation, pouvez-vous envoyer quelques photos de la zone à rénover ? " +
		"Si vous n'en avez pas, répondez simplement « pas de photo »."
	clarifyFallback = "Pas d'inquiétude, je reformule : "
	suggestFallback = "Voici quelques idées pour vous aider : "
	adviceFallback  = "Un conseil d'artisan : "
)

// execute runs a decision against the session and fills the turn result.
func (e *Engine) execute(ctx context.Context, s *Session, d Decision, utterance string, res *TurnResult) {
	switch d.Action {
	case models.ActionValidate:
		e.finalize(ctx, s, res)

	case models.ActionRequestPhotos:
		photoField := e.cat.PhotoField()
		s.Conversation.CurrentFocus = photoField
		q := models.Question{FieldID: photoField, Text: photoRequestText, AllowFreeText: true}
		res.OutputText = q.Text
		res.CurrentQuestion = &q
		msg := appmodels.NewChatMessage(s.ID, appmodels.RoleBot, q.Text)
		msg.FieldID = string(photoField)
		msg.Hints = []string{appmodels.HintUpload, appmodels.HintAllowFreeText}
		res.Messages = append(res.Messages, msg)

	case models.ActionClarify, models.ActionSuggest, models.ActionExpertAdvice:
		field, _ := e.cat.Field(d.Target)
		s.Conversation.CurrentFocus = d.Target
		text := e.advise(ctx, d.Action, field, s, utterance)
		s.Conversation.LastSuggestion = text

		q := models.Question{
			FieldID:       d.Target,
			Text:          text,
			Options:       e.questions.Options(ctx, field, s.Project),
			AllowFreeText: true,
			MultiSelect:   field.Type == models.FieldTypeMultiSelect,
		}
		e.ask(s, q, res)

	default:
		s.Conversation.CurrentFocus = d.Target
		q := e.questions.Render(ctx, d.Target, s.Project, s.Conversation)
		e.ask(s, q, res)
	}
}

func (e *Engine) ask(s *Session, q models.Question, res *TurnResult) {
	res.OutputText = q.Text
	res.CurrentQuestion = &q
	res.Options = q.Options

	role := appmodels.RoleBot
	if len(q.Options) > 0 {
		role = appmodels.RoleSelection
	}
	msg := appmodels.NewChatMessage(s.ID, role, q.Text)
	msg.FieldID = string(q.FieldID)
	for _, o := range q.Options {
		msg.Options = append(msg.Options, o.Label)
	}
	if q.AllowFreeText {
		msg.Hints = append(msg.Hints, appmodels.HintAllowFreeText)
	}
	if q.MultiSelect {
		msg.Hints = append(msg.Hints, appmodels.HintMultiSelect)
	}
	if q.FieldID == e.cat.PhotoField() {
		msg.Hints = append(msg.Hints, appmodels.HintUpload)
	}
	res.Messages = append(res.Messages, msg)
}

// advise asks the completion port for a short clarification, suggestion or
// piece of advice about field.
func (e *Engine) advise(ctx context.Context, action models.Action, field models.FieldMetadata, s *Session, utterance string) string {
	if e.llm != nil {
		ctx, cancel := withTimeout(ctx, e.timeout)
		defer cancel()

		out, err := e.llm.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: adviceSystemPrompt,
			UserPrompt:   advicePrompt(action, field, s.Project, s.Conversation, utterance),
			Temperature:  0.5,
			MaxTokens:    200,
		})
		if err == nil && strings.TrimSpace(out) != "" {
			return strings.TrimSpace(out)
		}
		e.log.Warn("engine: advice unavailable, using static text",
			zap.String("action", string(action)), zap.Error(err))
	}
	return staticAdvice(action, field, s.Conversation.ExpertContext)
}

func staticAdvice(action models.Action, field models.FieldMetadata, hints models.DomainHints) string {
	switch action {
	case models.ActionSuggest:
		if len(field.Examples) > 0 {
			return suggestFallback + strings.Join(field.Examples, ", ") + ".\n" + field.HelpPrompt
		}
	case models.ActionExpertAdvice:
		if len(hints.KeyPoints) > 0 {
			return adviceFallback + hints.KeyPoints[0] + "\n" + field.HelpPrompt
		}
	}
	return clarifyFallback + fallbackQuestion(field, models.ModeHelping)
}

// finalize computes the estimate and the summary once, then closes the conversation.
func (e *Engine) finalize(ctx context.Context, s *Session, res *TurnResult) {
	estimate := pricing.Estimate(s.Project)
	visionCtx, cancel := withTimeout(ctx, e.timeout)
	sum := summary.Generate(visionCtx, e.cat, s.Project, &estimate, e.vision, e.log)
	cancel()

	s.Estimate = &estimate
	s.Summary = &sum
	s.Conversation.CurrentFocus = ""
	s.Conversation.IsComplete = true

	e.log.Info("engine: intake complete",
		zap.String("session", s.ID),
		zap.String("category", s.Project.Category()),
		zap.Int("min", estimate.Min),
		zap.Int("max", estimate.Max))

	e.completed(s, res)
}

// completed fills res from the stored estimate and summary.
func (e *Engine) completed(s *Session, res *TurnResult) {
	res.IsComplete = true
	res.EstimatedPrice = s.Estimate
	res.Summary = s.Summary
	res.FinalAnswers = s.Project.Answers()
	if s.Summary != nil {
		res.OutputText = s.Summary.Render()
	}
	res.Messages = append(res.Messages, appmodels.NewChatMessage(s.ID, appmodels.RoleSummary, res.OutputText))
}
