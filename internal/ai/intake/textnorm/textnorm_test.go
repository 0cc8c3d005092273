package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := map[string]string{
		"Mètres  Carrés":     "metres carres",
		"  ÉLECTRICITÉ ":     "electricite",
		"Cœur de l’immeuble": "coeur de l'immeuble",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Fold(in), in)
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		text string
		term string
		want bool
	}{
		{"repeindre le salon", "salon", true},
		{"la salle de bain est vieille", "Salle de Bain", true},
		{"un salonnier", "salon", false},
		{"c'est use", "use", true},
		{"musee", "use", false},
		{"fuite", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContainsWord(Fold(tt.text), tt.term), "%q in %q", tt.term, tt.text)
	}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "salle-de-bain", Slug("Salle de bain"))
	assert.Equal(t, "urgent-sous-1-semaine", Slug("Urgent (sous 1 semaine)"))
	assert.Equal(t, "renovation-complete", Slug(" Rénovation complète "))
}

func TestFloorLevel(t *testing.T) {
	tests := []struct {
		in    string
		level int
		ok    bool
	}{
		{"Rez-de-chaussée", 0, true},
		{"rdc", 0, true},
		{"au RDC", 0, true},
		{"1er étage", 1, true},
		{"premier étage", 1, true},
		{"2e étage", 2, true},
		{"deuxième étage", 2, true},
		{"3ème étage", 3, true},
		{"3e étage ou plus", 3, true},
		{"5e étage", 5, true},
		{"au 4", 4, true},
		{"7ieme", 7, true},
		{"je ne sais pas", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		level, ok := FloorLevel(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.level, level, tt.in)
	}
}
