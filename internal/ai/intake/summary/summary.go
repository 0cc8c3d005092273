// Package summary assembles the final report of a completed intake.
package summary

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/llm"
)

const (
	VisionUnavailable = "Analyse visuelle indisponible pour le moment, un artisan examinera vos photos."

	visionPrompt = "Tu es un expert en rénovation. Décris en quelques phrases l'état visible " +
		"sur ces photos, les travaux probables et les points d'attention pour un devis. Réponds en français."
)

type Line struct {
	FieldID models.FieldID `json:"field_id"`
	Label   string         `json:"label"`
	Value   string         `json:"value"`
}

type Summary struct {
	Lines          []Line                 `json:"lines"`
	Estimate       *models.EstimatedPrice `json:"estimate,omitempty"`
	VisualAnalysis string                 `json:"visual_analysis,omitempty"`
}

// Generate builds the summary. The vision port is only called when photos
// were supplied; a nil port, a failed call or a call still running when ctx
// ends yields a placeholder text.
func Generate(ctx context.Context, cat *catalog.Catalog, state catalog.ProjectState,
	estimate *models.EstimatedPrice, vision llm.VisionAnalyzer, log *zap.Logger) Summary {
	if log == nil {
		log = zap.NewNop()
	}
	s := Summary{Estimate: estimate}

	for _, f := range cat.Fields() {
		v, ok := state.Get(f.ID)
		if !ok {
			continue
		}
		value := v.String()
		if f.ID == cat.PhotoField() && len(v.List) > 0 {
			value = fmt.Sprintf("%d photo(s) fournie(s)", len(v.List))
		}
		s.Lines = append(s.Lines, Line{FieldID: f.ID, Label: f.Name, Value: value})
	}

	photos := state.Photos()
	if len(photos) == 0 {
		return s
	}
	if vision == nil {
		s.VisualAnalysis = VisionUnavailable
		return s
	}
	text, err := analyze(ctx, vision, photos)
	if err != nil || strings.TrimSpace(text) == "" {
		log.Warn("summary: visual analysis failed", zap.Int("photos", len(photos)), zap.Error(err))
		s.VisualAnalysis = VisionUnavailable
		return s
	}
	s.VisualAnalysis = strings.TrimSpace(text)
	return s
}

type visionReply struct {
	text string
	err  error
}

// analyze returns as soon as ctx ends, even if the port ignores it.
func analyze(ctx context.Context, vision llm.VisionAnalyzer, photos []string) (string, error) {
	done := make(chan visionReply, 1)
	go func() {
		text, err := vision.Analyze(ctx, llm.ImagesFromURLs(photos), visionPrompt)
		done <- visionReply{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Render formats the summary as the closing chat message.
func (s Summary) Render() string {
	var sb strings.Builder
	sb.WriteString("Récapitulatif de votre projet\n\n")
	for _, l := range s.Lines {
		fmt.Fprintf(&sb, "- %s : %s\n", l.Label, l.Value)
	}

	if s.Estimate != nil {
		fmt.Fprintf(&sb, "\nEstimation : entre %s et %s\n", formatEuros(s.Estimate.Min), formatEuros(s.Estimate.Max))
		for _, f := range s.Estimate.Factors {
			fmt.Fprintf(&sb, "  • %s\n", f)
		}
	}

	if s.VisualAnalysis != "" {
		sb.WriteString("\nAnalyse des photos\n")
		sb.WriteString(s.VisualAnalysis)
		sb.WriteString("\n")
	}

	sb.WriteString("\nUn artisan qualifié vous recontactera pour affiner ce devis.")
	return sb.String()
}

// formatEuros groups thousands the French way: 12 500 €.
func formatEuros(n int) string {
	digits := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	var sb strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteRune(' ')
		}
		sb.WriteRune(r)
	}
	out := sb.String() + " €"
	if neg {
		out = "-" + out
	}
	return out
}
