package service

import (
	"context"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/llm"
)

// ClassifyContext is what the classifier knows about the turn besides the utterance.
type ClassifyContext struct {
	Focus    models.FieldMetadata
	Category string
	Expert   models.DomainHints
}

// IntentAnalyzer labels a user utterance with one of the closed intents.
// Any failure falls back to complete_answer.
type IntentAnalyzer struct {
	llm     llm.Completer
	timeout time.Duration
	log     *zap.Logger
}

func NewIntentAnalyzer(c llm.Completer, timeout time.Duration, log *zap.Logger) *IntentAnalyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &IntentAnalyzer{llm: c, timeout: timeout, log: log}
}

func (ia *IntentAnalyzer) Classify(ctx context.Context, utterance string, cc ClassifyContext) models.Intent {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" || ia.llm == nil {
		return models.IntentCompleteAnswer
	}

	ctx, cancel := withTimeout(ctx, ia.timeout)
	defer cancel()

	reply, err := ia.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: classifierSystemPrompt,
		UserPrompt:   classifierPrompt(utterance, cc),
		Temperature:  0.1,
		MaxTokens:    20,
	})
	if err != nil {
		ia.log.Debug("classifier: completion failed, assuming answer", zap.Error(err))
		return models.IntentCompleteAnswer
	}

	label := normalizeLabel(reply)
	intent, ok := models.ParseIntent(label)
	if !ok {
		ia.log.Debug("classifier: unknown label, assuming answer", zap.String("label", label))
		return models.IntentCompleteAnswer
	}
	return intent
}

// normalizeLabel keeps the first token of a reply, lower-cased, without
// quotes or punctuation.
func normalizeLabel(reply string) string {
	fields := strings.Fields(strings.ToLower(reply))
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
