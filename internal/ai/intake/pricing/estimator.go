// Package pricing produces a rule-based price range for a collected project.
package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/intake/textnorm"
)

const (
	minRatio = 0.8
	maxRatio = 1.3

	defaultBase = 500.0
)

// serviceRule overrides the category base when the service text contains
// one of the keywords. perSquareMeter rules scale with the surface.
type serviceRule struct {
	keywords       []string
	label          string
	amount         float64
	perSquareMeter bool
}

type categoryRule struct {
	label          string
	amount         float64
	perSquareMeter bool
	defaultSurface float64
	services       []serviceRule
}

var rules = map[string]categoryRule{
	"peinture": {
		label: "Peinture", amount: 25, perSquareMeter: true, defaultSurface: 20,
		services: []serviceRule{
			{keywords: []string{"facade"}, label: "Peinture de façade", amount: 40, perSquareMeter: true},
			{keywords: []string{"plafond"}, label: "Peinture murs et plafond", amount: 32, perSquareMeter: true},
			{keywords: []string{"papier peint", "tapisserie"}, label: "Pose de papier peint", amount: 30, perSquareMeter: true},
		},
	},
	"carrelage": {
		label: "Carrelage", amount: 60, perSquareMeter: true, defaultSurface: 10,
		services: []serviceRule{
			{keywords: []string{"depose"}, label: "Dépose et pose de carrelage", amount: 80, perSquareMeter: true},
			{keywords: []string{"faience", "mural"}, label: "Pose de faïence murale", amount: 55, perSquareMeter: true},
		},
	},
	"revetement de sol": {
		label: "Revêtement de sol", amount: 45, perSquareMeter: true, defaultSurface: 20,
		services: []serviceRule{
			{keywords: []string{"poncage", "vitrification"}, label: "Ponçage et vitrification", amount: 30, perSquareMeter: true},
			{keywords: []string{"parquet"}, label: "Pose de parquet", amount: 55, perSquareMeter: true},
		},
	},
	"isolation": {
		label: "Isolation", amount: 50, perSquareMeter: true, defaultSurface: 40,
		services: []serviceRule{
			{keywords: []string{"combles"}, label: "Isolation des combles", amount: 30, perSquareMeter: true},
			{keywords: []string{"exterieur", "ite"}, label: "Isolation par l'extérieur", amount: 150, perSquareMeter: true},
		},
	},
	"maconnerie": {
		label: "Maçonnerie", amount: 100, perSquareMeter: true, defaultSurface: 15,
		services: []serviceRule{
			{keywords: []string{"mur porteur", "ouverture"}, label: "Ouverture de mur porteur", amount: 3500},
			{keywords: []string{"dalle"}, label: "Dalle béton", amount: 90, perSquareMeter: true},
		},
	},
	"toiture": {
		label: "Toiture", amount: 80, perSquareMeter: true, defaultSurface: 60,
		services: []serviceRule{
			{keywords: []string{"demoussage", "nettoyage"}, label: "Nettoyage et démoussage", amount: 20, perSquareMeter: true},
			{keywords: []string{"gouttiere"}, label: "Pose de gouttières", amount: 1200},
		},
	},
	"renovation complete": {
		label: "Rénovation complète", amount: 450, perSquareMeter: true, defaultSurface: 50,
	},
	"plomberie": {
		label: "Plomberie", amount: 300,
		services: []serviceRule{
			{keywords: []string{"chauffe-eau", "chauffe eau", "ballon"}, label: "Installation de chauffe-eau", amount: 900},
			{keywords: []string{"fuite"}, label: "Réparation de fuite", amount: 150},
			{keywords: []string{"robinet", "mitigeur"}, label: "Remplacement de robinetterie", amount: 120},
			{keywords: []string{"wc", "toilette", "toilettes"}, label: "Installation de WC", amount: 400},
			{keywords: []string{"debouchage", "bouche"}, label: "Débouchage", amount: 130},
		},
	},
	"electricite": {
		label: "Électricité", amount: 400,
		services: []serviceRule{
			{keywords: []string{"mise aux normes", "normes"}, label: "Mise aux normes", amount: 3500},
			{keywords: []string{"tableau"}, label: "Remplacement du tableau électrique", amount: 1200},
			{keywords: []string{"prise", "prises"}, label: "Ajout de prises", amount: 150},
			{keywords: []string{"eclairage", "luminaire", "spot", "spots"}, label: "Installation d'éclairage", amount: 250},
		},
	},
	"menuiserie": {
		label: "Menuiserie", amount: 800,
		services: []serviceRule{
			{keywords: []string{"fenetre", "fenetres"}, label: "Remplacement de fenêtres", amount: 600},
			{keywords: []string{"porte"}, label: "Pose de porte", amount: 500},
			{keywords: []string{"placard", "dressing"}, label: "Création de placard", amount: 1200},
			{keywords: []string{"escalier"}, label: "Escalier", amount: 4000},
		},
	},
	"chauffage": {
		label: "Chauffage", amount: 1500,
		services: []serviceRule{
			{keywords: []string{"pompe a chaleur", "pac"}, label: "Installation de pompe à chaleur", amount: 12000},
			{keywords: []string{"chaudiere"}, label: "Remplacement de chaudière", amount: 4500},
			{keywords: []string{"radiateur", "radiateurs"}, label: "Pose de radiateurs", amount: 600},
			{keywords: []string{"entretien"}, label: "Entretien de chaudière", amount: 150},
		},
	},
	"cuisine": {
		label: "Cuisine", amount: 8000,
		services: []serviceRule{
			{keywords: []string{"plan de travail"}, label: "Pose de plan de travail", amount: 1500},
		},
	},
	"salle de bain": {
		label: "Salle de bain", amount: 7000,
		services: []serviceRule{
			{keywords: []string{"douche"}, label: "Remplacement de baignoire par douche", amount: 4500},
			{keywords: []string{"vasque", "lavabo"}, label: "Pose de meuble vasque", amount: 900},
		},
	},
}

type multiplier struct {
	factor float64
	reason string
}

// Estimate computes the price range for the project. Pure function of state.
func Estimate(state catalog.ProjectState) models.EstimatedPrice {
	price, factors := base(state)

	for _, m := range adjustments(state) {
		price *= m.factor
		factors = append(factors, fmt.Sprintf("%s (×%s)", m.reason, strconv.FormatFloat(m.factor, 'f', -1, 64)))
	}

	return models.EstimatedPrice{
		Min:     int(math.Round(minRatio * price)),
		Max:     int(math.Round(maxRatio * price)),
		Factors: factors,
	}
}

func base(state catalog.ProjectState) (float64, []string) {
	rule, ok := rules[textnorm.Fold(state.Category())]
	if !ok {
		return defaultBase, []string{fmt.Sprintf("Forfait de base : %s", euros(defaultBase))}
	}

	service := textnorm.Fold(state.Text(catalog.FieldServiceType) + " " + state.Text(catalog.FieldDescription))
	label, amount, perM2 := rule.label, rule.amount, rule.perSquareMeter
	for _, s := range rule.services {
		if containsAny(service, s.keywords) {
			label, amount, perM2 = s.label, s.amount, s.perSquareMeter
			break
		}
	}

	if !perM2 {
		return amount, []string{fmt.Sprintf("Base %s : forfait %s", label, euros(amount))}
	}

	surface, known := surfaceOf(state)
	if !known {
		surface = rule.defaultSurface
		if surface <= 0 {
			surface = 1
		}
		return surface * amount, []string{fmt.Sprintf("Base %s : surface estimée %s m² × %s/m²",
			label, formatQty(surface), euros(amount))}
	}
	return surface * amount, []string{fmt.Sprintf("Base %s : %s m² × %s/m²", label, formatQty(surface), euros(amount))}
}

func adjustments(state catalog.ProjectState) []multiplier {
	var out []multiplier

	switch textnorm.Fold(state.Text(catalog.FieldRoomType)) {
	case "cuisine":
		out = append(out, multiplier{1.15, "Cuisine : accès et contraintes techniques"})
	case "salle de bain":
		out = append(out, multiplier{1.2, "Salle de bain : pièce humide, étanchéité"})
	}

	switch textnorm.Fold(state.Text(catalog.FieldCondition)) {
	case "mauvais etat":
		out = append(out, multiplier{1.3, "Mauvais état : préparation supplémentaire"})
	case "etat moyen":
		out = append(out, multiplier{1.1, "État moyen : reprises ponctuelles"})
	}

	if highFloor(state.Text(catalog.FieldFloor)) && textnorm.Fold(state.Text(catalog.FieldElevator)) == "non" {
		out = append(out, multiplier{1.1, "Étage élevé sans ascenseur"})
	}

	if isUrgent(state.Text(catalog.FieldUrgency)) {
		out = append(out, multiplier{1.2, "Intervention urgente"})
	}
	return out
}

func highFloor(floor string) bool {
	level, ok := textnorm.FloorLevel(floor)
	return ok && level >= 2
}

func isUrgent(urgency string) bool {
	f := textnorm.Fold(urgency)
	if containsAny(f, []string{"pas urgent", "pas presse", "pas d'urgence"}) {
		return false
	}
	return containsAny(f, []string{"urgent", "urgence", "au plus vite", "des que possible"})
}

func surfaceOf(state catalog.ProjectState) (float64, bool) {
	raw := strings.ReplaceAll(state.Text(catalog.FieldSurface), ",", ".")
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func containsAny(folded string, keywords []string) bool {
	for _, k := range keywords {
		if textnorm.ContainsWord(folded, k) {
			return true
		}
	}
	return false
}

func euros(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + " €"
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
