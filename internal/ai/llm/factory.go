package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	ProviderMistral = "mistral"
	ProviderGemini  = "gemini"
	ProviderNone    = "none"
)

type Settings struct {
	Provider    string
	APIKey      string
	Model       string
	VisionModel string
	BaseURL     string
}

// New builds the ports for the configured provider. ProviderNone, or a
// provider without API key, yields nil ports: the engine then runs on its
// deterministic fallbacks only.
func New(ctx context.Context, s Settings) (Completer, VisionAnalyzer, error) {
	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	if provider == "" || provider == ProviderNone || s.APIKey == "" {
		return nil, nil, nil
	}

	switch provider {
	case ProviderMistral:
		model := s.Model
		if model == "" {
			model = "mistral-small-latest"
		}
		vision := s.VisionModel
		if vision == "" {
			vision = "pixtral-12b-2409"
		}
		c := NewMistralClient(s.APIKey, model, vision, s.BaseURL)
		return c, c, nil
	case ProviderGemini:
		model := s.Model
		if model == "" {
			model = "gemini-2.5-flash"
		}
		c, err := NewGeminiClient(ctx, s.APIKey, model, s.VisionModel)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", s.Provider)
	}
}
