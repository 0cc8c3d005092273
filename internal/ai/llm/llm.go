// Package llm holds the reasoning-service ports used by the intake engine and
// their Mistral and Gemini adapters.
package llm

import (
	"context"
	"errors"
)

var (
	ErrEmptyResponse = errors.New("llm: empty response")
	ErrNoImages      = errors.New("llm: no images to analyze")
)

// CompletionRequest is a single-shot completion: one system prompt, one user prompt.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// Completer returns the text completion of a prompt.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ImageRef points to an image reachable by the provider.
type ImageRef struct {
	URL      string
	MimeType string
}

// VisionAnalyzer describes images in free text.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, images []ImageRef, prompt string) (string, error)
}

// ImagesFromURLs guesses the mime type of each URL from its extension.
func ImagesFromURLs(urls []string) []ImageRef {
	out := make([]ImageRef, 0, len(urls))
	for _, u := range urls {
		out = append(out, ImageRef{URL: u, MimeType: mimeFromURL(u)})
	}
	return out
}
