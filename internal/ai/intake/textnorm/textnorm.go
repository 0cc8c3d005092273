// Package textnorm folds user-typed French text for keyword matching.
package textnorm

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s, strips diacritics and collapses whitespace, so that
// "Mètres  Carrés" and "metres carres" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	out = strings.ReplaceAll(out, "œ", "oe")
	out = strings.ReplaceAll(out, "’", "'")
	return strings.Join(strings.Fields(out), " ")
}

// ContainsWord reports whether the folded text contains term as a whole word
// or word sequence.
func ContainsWord(folded, term string) bool {
	term = Fold(term)
	if term == "" {
		return false
	}
	for from := 0; ; {
		i := strings.Index(folded[from:], term)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(term)
		before, _ := utf8.DecodeLastRuneInString(folded[:start])
		after, _ := utf8.DecodeRuneInString(folded[end:])
		if boundary(before) && boundary(after) {
			return true
		}
		from = start + 1
	}
}

var (
	floorNumberRegex = regexp.MustCompile(`\b(\d{1,2}) ?(?:er|ere|e|eme|ieme|em)?\b`)

	floorWords = map[string]int{
		"premier": 1, "premiere": 1,
		"deuxieme": 2, "second": 2, "seconde": 2,
		"troisieme": 3, "quatrieme": 4, "cinquieme": 5,
		"sixieme": 6, "septieme": 7, "huitieme": 8,
		"neuvieme": 9, "dixieme": 10,
	}
)

// FloorLevel reads a floor number from an answer such as "3ème étage",
// "deuxième", "rdc" or "Rez-de-chaussée". The ground floor is 0.
func FloorLevel(s string) (int, bool) {
	f := Fold(s)
	if f == "" {
		return 0, false
	}
	if ContainsWord(f, "rdc") || strings.HasPrefix(f, "rez") || ContainsWord(f, "plain-pied") ||
		ContainsWord(f, "plain pied") {
		return 0, true
	}
	if m := floorNumberRegex.FindStringSubmatch(f); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n, true
		}
	}
	for _, w := range strings.FieldsFunc(f, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if n, ok := floorWords[w]; ok {
			return n, true
		}
	}
	return 0, false
}

func boundary(r rune) bool {
	if r == utf8.RuneError {
		return true
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// Slug turns a label into an option id: "Salle de bain" -> "salle-de-bain".
func Slug(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range Fold(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
