package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
)

const (
	classifierSystemPrompt = `Tu analyses la réponse d'un client dans un formulaire conversationnel de rénovation.
Réponds avec UN SEUL mot parmi : complete_answer, need_help, uncertainty, question_back, validates_choice, provides_details, provides_photos.
- complete_answer : le client répond à la question posée
- need_help : il demande de l'aide ou des exemples
- uncertainty : il hésite ou ne sait pas
- question_back : il pose une question en retour
- validates_choice : il confirme une option proposée
- provides_details : il donne des détails supplémentaires
- provides_photos : il parle de photos ou en envoie`

	plannerSystemPrompt = `Tu pilotes un entretien de qualification de travaux de rénovation.
Choisis la prochaine action. Réponds UNIQUEMENT en JSON :
{"action": "ask_next|clarify|suggest|request_photos|validate|expert_advice", "target_field": "<id du champ>", "reasoning": "<courte justification>"}
Ne cible jamais un champ déjà renseigné.`

	questionSystemPrompt = `Tu es un assistant chaleureux qui aide un particulier à décrire ses travaux.
Formule UNE question courte et naturelle, en français, pour obtenir l'information demandée. Pas de préambule.`

	adviceSystemPrompt = `Tu es un artisan expérimenté qui conseille un particulier.
Réponds en français, en trois phrases au plus, sans jargon inutile.`
)

func classifierPrompt(utterance string, cc ClassifyContext) string {
	var sb strings.Builder
	if cc.Focus.ID != "" {
		fmt.Fprintf(&sb, "Question en cours : %s (%s)\n", cc.Focus.Name, cc.Focus.HelpPrompt)
	}
	if cc.Category != "" {
		fmt.Fprintf(&sb, "Catégorie : %s\n", cc.Category)
	}
	if !cc.Expert.IsZero() {
		fmt.Fprintf(&sb, "Contexte métier : %s\n", cc.Expert.Expertise)
	}
	fmt.Fprintf(&sb, "Message du client : %q", utterance)
	return sb.String()
}

func plannerPrompt(cat *catalog.Catalog, state catalog.ProjectState, conv models.ConversationState,
	missing []models.FieldID, utterance string) string {
	var sb strings.Builder
	sb.WriteString("Champs déjà renseignés :\n")
	writeSnapshot(&sb, state)

	sb.WriteString("Champs manquants :\n")
	for _, id := range missing {
		if f, ok := cat.Field(id); ok {
			fmt.Fprintf(&sb, "- %s : %s\n", id, f.Name)
		}
	}
	photos := "non"
	if state.Has(cat.PhotoField()) {
		photos = "oui"
	}
	fmt.Fprintf(&sb, "Photos fournies : %s\n", photos)
	fmt.Fprintf(&sb, "Champ en cours : %s\nDernière intention : %s\nMode : %s\n",
		orNone(string(conv.CurrentFocus)), orNone(string(conv.LastIntent)), conv.Mode)
	if !conv.ExpertContext.IsZero() {
		fmt.Fprintf(&sb, "Contexte métier :\n%s\n", conv.ExpertContext.Prompt())
	}
	fmt.Fprintf(&sb, "Dernier message du client : %q", utterance)
	return sb.String()
}

func questionPrompt(field models.FieldMetadata, state catalog.ProjectState, conv models.ConversationState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Information à obtenir : %s (type %s)\n", field.Name, field.Type)
	fmt.Fprintf(&sb, "Question de référence : %s\n", field.HelpPrompt)
	if len(field.Examples) > 0 {
		fmt.Fprintf(&sb, "Exemples de réponses : %s\n", strings.Join(field.Examples, " ; "))
	}
	sb.WriteString("Projet jusqu'ici :\n")
	writeSnapshot(&sb, state)
	if conv.Mode == models.ModeHelping {
		sb.WriteString("Le client a besoin d'aide : propose des exemples concrets.\n")
	}
	sb.WriteString("Contexte métier :\n")
	sb.WriteString(conv.ExpertContext.Prompt())
	return sb.String()
}

func advicePrompt(action models.Action, field models.FieldMetadata, state catalog.ProjectState,
	conv models.ConversationState, utterance string) string {
	var sb strings.Builder
	switch action {
	case models.ActionClarify:
		sb.WriteString("Aide le client à comprendre ce qui est attendu et reformule la question.\n")
	case models.ActionSuggest:
		sb.WriteString("Propose au client deux ou trois réponses possibles adaptées à son projet.\n")
	default:
		sb.WriteString("Donne un conseil d'expert utile pour ce projet.\n")
	}
	fmt.Fprintf(&sb, "Sujet : %s (%s)\n", field.Name, field.HelpPrompt)
	sb.WriteString("Projet jusqu'ici :\n")
	writeSnapshot(&sb, state)
	sb.WriteString("Contexte métier :\n")
	sb.WriteString(conv.ExpertContext.Prompt())
	if utterance != "" {
		fmt.Fprintf(&sb, "\nMessage du client : %q", utterance)
	}
	return sb.String()
}

func writeSnapshot(sb *strings.Builder, state catalog.ProjectState) {
	answers := state.Answers()
	if len(answers) == 0 {
		sb.WriteString("(aucun)\n")
		return
	}
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(sb, "- %s : %s\n", id, answers[id])
	}
}

func orNone(s string) string {
	if s == "" {
		return "aucun"
	}
	return s
}
