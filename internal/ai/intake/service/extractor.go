package service

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/intake/textnorm"
)

type vocabularyEntry struct {
	term  string
	value string
}

// StateExtractor opportunistically fills secondary fields from the free text
// given for a narrative field. It never overwrites a value.
type StateExtractor struct {
	cat          *catalog.Catalog
	log          *zap.Logger
	surfaceRegex *regexp.Regexp
	rooms        []vocabularyEntry
	poorWords    []string
	newWords     []string
	materials    []vocabularyEntry
}

func NewStateExtractor(cat *catalog.Catalog, log *zap.Logger) *StateExtractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &StateExtractor{
		cat:          cat,
		log:          log,
		surfaceRegex: regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:m²|m2|metres? carres?|m carres?)`),
		// Longer terms first so "salle de bain" wins over "bain".
		rooms: []vocabularyEntry{
			{"salle de bain", "Salle de bain"},
			{"salle de bains", "Salle de bain"},
			{"salle d'eau", "Salle de bain"},
			{"salle a manger", "Salon"},
			{"sejour", "Salon"},
			{"salon", "Salon"},
			{"chambre", "Chambre"},
			{"cuisine", "Cuisine"},
			{"toilettes", "WC"},
			{"wc", "WC"},
			{"entree", "Entrée"},
			{"couloir", "Couloir"},
			{"bureau", "Bureau"},
			{"terrasse", "Extérieur"},
			{"jardin", "Extérieur"},
			{"facade", "Extérieur"},
		},
		poorWords: []string{
			"vieux", "vieille", "vieilles", "ancien", "ancienne", "anciens", "abime", "abimee", "abimes",
			"use", "usee", "uses", "casse", "cassee", "fissure", "fissures", "degrade", "degradee",
			"vetuste", "ecaille", "ecaillee", "moisissure", "humidite", "en mauvais etat",
		},
		newWords: []string{"neuf", "neuve", "recent", "recente", "refait", "refaite", "construction recente"},
		materials: []vocabularyEntry{
			{"gres cerame", "Grès cérame"},
			{"beton cire", "Béton ciré"},
			{"papier peint", "Papier peint"},
			{"parquet", "Parquet"},
			{"stratifie", "Stratifié"},
			{"carrelage", "Carrelage"},
			{"faience", "Faïence"},
			{"marbre", "Marbre"},
			{"vinyle", "Vinyle"},
			{"moquette", "Moquette"},
			{"chene", "Chêne"},
			{"pvc", "PVC"},
			{"aluminium", "Aluminium"},
			{"satinee", "Peinture satinée"},
			{"satine", "Peinture satinée"},
			{"mate", "Peinture mate"},
			{"brillante", "Peinture brillante"},
		},
	}
}

// Extract scans text given for source and fills empty secondary fields.
// It returns the fields it filled.
func (e *StateExtractor) Extract(state *catalog.ProjectState, source models.FieldID, text string) []models.FieldID {
	if !e.cat.IsNarrative(source) {
		return nil
	}
	folded := textnorm.Fold(text)
	if folded == "" {
		return nil
	}

	var filled []models.FieldID
	try := func(id models.FieldID, value string) {
		if value == "" {
			return
		}
		ok, err := state.SetIfEmpty(id, models.TextValue(value))
		if err != nil {
			e.log.Warn("extractor: write rejected", zap.String("field", string(id)), zap.Error(err))
			return
		}
		if ok {
			filled = append(filled, id)
		}
	}

	if !state.Has(catalog.FieldRoomType) {
		try(catalog.FieldRoomType, firstTerm(folded, e.rooms))
	}
	if !state.Has(catalog.FieldSurface) {
		if m := e.surfaceRegex.FindStringSubmatch(folded); len(m) == 2 {
			try(catalog.FieldSurface, normalizeDecimal(m[1]))
		}
	}
	if !state.Has(catalog.FieldCondition) {
		switch {
		case containsAnyWord(folded, e.poorWords):
			try(catalog.FieldCondition, "Mauvais état")
		case containsAnyWord(folded, e.newWords):
			try(catalog.FieldCondition, "Neuf")
		}
	}
	if !state.Has(catalog.FieldMaterial) {
		try(catalog.FieldMaterial, firstTerm(folded, e.materials))
	}

	if len(filled) > 0 {
		e.log.Debug("extractor: filled fields",
			zap.String("source", string(source)),
			zap.Any("fields", filled))
	}
	return filled
}

func firstTerm(folded string, vocabulary []vocabularyEntry) string {
	for _, v := range vocabulary {
		if textnorm.ContainsWord(folded, v.term) {
			return v.value
		}
	}
	return ""
}

func containsAnyWord(folded string, words []string) bool {
	for _, w := range words {
		if textnorm.ContainsWord(folded, w) {
			return true
		}
	}
	return false
}

func normalizeDecimal(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r == ',' {
			out[i] = '.'
		}
	}
	return string(out)
}
