package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/intake/textnorm"
)

var (
	numberRegex    = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)
	thousandsRegex = regexp.MustCompile(`\b\d{1,3}(?:[ \x{00A0}\x{202F}]\d{3})+\b`)
	listSplitRegex = regexp.MustCompile(`\s*(?:,|;|\bet\b|\+)\s*`)
	urlRegex       = regexp.MustCompile(`https?://\S+`)
)

// Coerce trims and converts a raw answer to the value stored for field.
// Values are never rejected: bound violations are returned as warnings and
// the answer is kept as the user gave it.
func Coerce(field models.FieldMetadata, raw string) (models.Value, []string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Value{}, nil
	}

	switch field.Type {
	case models.FieldTypeNumber:
		n, ok := extractNumber(raw)
		if !ok {
			return models.TextValue(raw), []string{"valeur numérique attendue"}
		}
		return models.TextValue(formatNumber(n)), checkBounds(field, n)

	case models.FieldTypeSelection:
		if len(field.Options) == 0 {
			return models.TextValue(raw), checkLength(field, raw)
		}
		if field.ID == catalog.FieldFloor {
			if opt, ok := matchFloor(field.Options, raw); ok {
				return models.TextValue(opt), nil
			}
		}
		if opt, ok := MatchOption(field.Options, raw); ok {
			return models.TextValue(opt), nil
		}
		return models.TextValue(raw), checkLength(field, raw)

	case models.FieldTypeMultiSelect:
		parts := listSplitRegex.Split(raw, -1)
		items := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if opt, ok := MatchOption(field.Options, p); ok {
				p = opt
			}
			items = append(items, p)
		}
		return models.ListValue(items), nil

	case models.FieldTypePhotos:
		if urls := urlRegex.FindAllString(raw, -1); len(urls) > 0 {
			return models.ListValue(urls), nil
		}
		// A textual answer ("pas de photo") still settles the field.
		return models.TextValue(raw), nil

	default:
		return models.TextValue(raw), checkLength(field, raw)
	}
}

// MatchOption maps free text onto one of the declared options: exact match
// after folding, then containment, then fuzzy subsequence matching.
func MatchOption(options []string, raw string) (string, bool) {
	in := textnorm.Fold(raw)
	if in == "" {
		return "", false
	}
	folded := make([]string, len(options))
	for i, o := range options {
		folded[i] = textnorm.Fold(o)
		if folded[i] == in {
			return o, true
		}
	}
	for i, f := range folded {
		if textnorm.ContainsWord(in, f) {
			return options[i], true
		}
	}
	for i, f := range folded {
		if len(in) >= 3 && strings.HasPrefix(f, in) {
			return options[i], true
		}
	}
	if len(in) < 4 {
		return "", false
	}
	matches := fuzzy.Find(in, folded)
	if len(matches) == 0 {
		return "", false
	}
	return options[matches[0].Index], true
}

// matchFloor maps a floor answer onto the option of the same level. Levels
// above the highest option fall into it ("5e étage" -> "3e étage ou plus").
func matchFloor(options []string, raw string) (string, bool) {
	level, ok := textnorm.FloorLevel(raw)
	if !ok {
		return "", false
	}
	top, topLevel := "", -1
	for _, o := range options {
		l, ok := textnorm.FloorLevel(o)
		if !ok {
			continue
		}
		if l == level {
			return o, true
		}
		if l > topLevel {
			top, topLevel = o, l
		}
	}
	if topLevel >= 0 && level > topLevel {
		return top, true
	}
	return "", false
}

// ValidateProjectState checks every filled field against its declared bounds.
func ValidateProjectState(state catalog.ProjectState) models.ValidationState {
	result := models.NewValidationState()
	cat := state.Catalog()
	if cat == nil {
		return result
	}
	for _, f := range cat.Fields() {
		v, ok := state.Get(f.ID)
		if !ok {
			continue
		}
		for _, w := range ValidateValue(f, v) {
			result.Warnings[string(f.ID)] = w
		}
	}
	return result
}

// ValidateValue re-checks a stored value.
func ValidateValue(field models.FieldMetadata, v models.Value) []string {
	if field.Type == models.FieldTypeNumber {
		n, ok := extractNumber(v.Text)
		if !ok {
			return []string{"valeur numérique attendue"}
		}
		return checkBounds(field, n)
	}
	return checkLength(field, v.String())
}

func extractNumber(raw string) (float64, bool) {
	// Only spaces grouping thousands ("1 200") are dropped; "12 15" stays two numbers.
	raw = thousandsRegex.ReplaceAllStringFunc(raw, func(m string) string {
		return strings.Map(func(r rune) rune {
			if r == ' ' || r == '\u00a0' || r == '\u202f' {
				return -1
			}
			return r
		}, m)
	})
	m := numberRegex.FindString(raw)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func checkBounds(field models.FieldMetadata, n float64) []string {
	var warnings []string
	if field.Validation.Min != nil && n < *field.Validation.Min {
		warnings = append(warnings, fmt.Sprintf("%s : la valeur %s est inférieure au minimum %s",
			field.Name, formatNumber(n), formatNumber(*field.Validation.Min)))
	}
	if field.Validation.Max != nil && n > *field.Validation.Max {
		warnings = append(warnings, fmt.Sprintf("%s : la valeur %s dépasse le maximum %s",
			field.Name, formatNumber(n), formatNumber(*field.Validation.Max)))
	}
	return warnings
}

func checkLength(field models.FieldMetadata, s string) []string {
	if field.Validation.MaxLength > 0 && utf8.RuneCountInString(s) > field.Validation.MaxLength {
		return []string{fmt.Sprintf("%s : %d caractères maximum", field.Name, field.Validation.MaxLength)}
	}
	return nil
}
