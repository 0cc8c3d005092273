package models

import "strings"

// FieldID identifies one collectible field of the intake catalog.
type FieldID string

type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeSelection   FieldType = "selection"
	FieldTypeMultiSelect FieldType = "multi_select"
	FieldTypeLocation    FieldType = "location"
	FieldTypePhotos      FieldType = "photos"
	FieldTypeNumber      FieldType = "number"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeSelection, FieldTypeMultiSelect,
		FieldTypeLocation, FieldTypePhotos, FieldTypeNumber:
		return true
	}
	return false
}

// Validation holds the declared bounds of a field. Zero values mean "no bound".
type Validation struct {
	MaxLength int      `json:"max_length,omitempty" yaml:"max_length"`
	Min       *float64 `json:"min,omitempty" yaml:"min"`
	Max       *float64 `json:"max,omitempty" yaml:"max"`
}

// FieldMetadata describes a field of the catalog. Immutable once loaded.
type FieldMetadata struct {
	ID            FieldID   `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	Type          FieldType `json:"type" yaml:"type"`
	HelpPrompt    string    `json:"help_prompt" yaml:"help_prompt"`
	Examples      []string  `json:"examples,omitempty" yaml:"examples"`
	Options       []string  `json:"options,omitempty" yaml:"options"`
	IsRequired    bool      `json:"is_required" yaml:"required"`
	IsConditional bool      `json:"is_conditional" yaml:"conditional"`
	DependsOn     FieldID   `json:"depends_on,omitempty" yaml:"depends_on"`

	// DependsOnValues restricts DependsOn to the listed answers; empty means any answer.
	DependsOnValues []string   `json:"depends_on_values,omitempty" yaml:"depends_on_values"`
	Categories      []string   `json:"categories,omitempty" yaml:"categories"`
	Validation      Validation `json:"validation,omitempty" yaml:"validation"`
}

// RelevantFor reports whether the field lists the category among its relevant ones.
func (f FieldMetadata) RelevantFor(category string) bool {
	for _, c := range f.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// Value is what a ProjectState holds for a field: free text or a list (photos, multi-select).
type Value struct {
	Text string   `json:"text,omitempty"`
	List []string `json:"list,omitempty"`
}

func TextValue(s string) Value { return Value{Text: s} }

func ListValue(items []string) Value {
	return Value{List: append([]string(nil), items...)}
}

func (v Value) IsEmpty() bool {
	return strings.TrimSpace(v.Text) == "" && len(v.List) == 0
}

// String renders the value for prompts and summaries.
func (v Value) String() string {
	if len(v.List) > 0 {
		return strings.Join(v.List, ", ")
	}
	return v.Text
}

type Intent string

const (
	IntentCompleteAnswer  Intent = "complete_answer"
	IntentNeedHelp        Intent = "need_help"
	IntentUncertainty     Intent = "uncertainty"
	IntentQuestionBack    Intent = "question_back"
	IntentValidatesChoice Intent = "validates_choice"
	IntentProvidesDetails Intent = "provides_details"
	IntentProvidesPhotos  Intent = "provides_photos"
)

var Intents = []Intent{
	IntentCompleteAnswer, IntentNeedHelp, IntentUncertainty, IntentQuestionBack,
	IntentValidatesChoice, IntentProvidesDetails, IntentProvidesPhotos,
}

// ParseIntent validates a label against the closed intent set.
func ParseIntent(label string) (Intent, bool) {
	for _, i := range Intents {
		if string(i) == label {
			return i, true
		}
	}
	return "", false
}

// IsAnswer reports whether the intent carries a value for the focus field.
func (i Intent) IsAnswer() bool {
	return i == IntentCompleteAnswer || i == IntentValidatesChoice || i == IntentProvidesDetails
}

type Mode string

const (
	ModeGuided  Mode = "guided"
	ModeFree    Mode = "free"
	ModeHelping Mode = "helping"
)

type Action string

const (
	ActionAskNext       Action = "ask_next"
	ActionClarify       Action = "clarify"
	ActionSuggest       Action = "suggest"
	ActionRequestPhotos Action = "request_photos"
	ActionValidate      Action = "validate"
	ActionExpertAdvice  Action = "expert_advice"
)

func ParseAction(label string) (Action, bool) {
	switch a := Action(label); a {
	case ActionAskNext, ActionClarify, ActionSuggest, ActionRequestPhotos, ActionValidate, ActionExpertAdvice:
		return a, true
	}
	return "", false
}

// DomainHints is the structured expert context of a category.
type DomainHints struct {
	Category   string   `json:"category" yaml:"-"`
	Expertise  string   `json:"expertise" yaml:"expertise"`
	Vocabulary []string `json:"vocabulary,omitempty" yaml:"vocabulary"`
	KeyPoints  []string `json:"key_points,omitempty" yaml:"key_points"`
}

func (h DomainHints) IsZero() bool {
	return h.Expertise == "" && len(h.Vocabulary) == 0 && len(h.KeyPoints) == 0
}

// Prompt renders the hints as a prompt fragment.
func (h DomainHints) Prompt() string {
	if h.IsZero() {
		return "Artisan généraliste de la rénovation."
	}
	var sb strings.Builder
	sb.WriteString(h.Expertise)
	if len(h.KeyPoints) > 0 {
		sb.WriteString("\nPoints d'attention : ")
		sb.WriteString(strings.Join(h.KeyPoints, " ; "))
	}
	if len(h.Vocabulary) > 0 {
		sb.WriteString("\nVocabulaire métier : ")
		sb.WriteString(strings.Join(h.Vocabulary, ", "))
	}
	return sb.String()
}

// ConversationState is the engine-owned record of where the dialogue stands.
type ConversationState struct {
	CurrentFocus   FieldID     `json:"current_focus,omitempty"`
	LastIntent     Intent      `json:"last_intent,omitempty"`
	Mode           Mode        `json:"mode"`
	HelpCount      int         `json:"help_count"`
	LastSuggestion string      `json:"last_suggestion,omitempty"`
	IsComplete     bool        `json:"is_complete"`
	ExpertContext  DomainHints `json:"expert_context"`
}

func NewConversationState() ConversationState {
	return ConversationState{Mode: ModeGuided}
}

// EstimatedPrice is computed once, at finalization.
type EstimatedPrice struct {
	Min     int      `json:"min"`
	Max     int      `json:"max"`
	Factors []string `json:"factors"`
}

// Option is one selectable answer offered with a question.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Question is the rendered prompt for the field under focus.
type Question struct {
	FieldID       FieldID  `json:"field_id"`
	Text          string   `json:"text"`
	Options       []Option `json:"options,omitempty"`
	AllowFreeText bool     `json:"allow_free_text"`
	MultiSelect   bool     `json:"multi_select,omitempty"`
}

// ValidationState collects bound violations found while coercing answers.
type ValidationState struct {
	IsValid  bool              `json:"is_valid"`
	Errors   map[string]string `json:"errors,omitempty"`
	Warnings map[string]string `json:"warnings,omitempty"`
}

func NewValidationState() ValidationState {
	return ValidationState{
		IsValid:  true,
		Errors:   make(map[string]string),
		Warnings: make(map[string]string),
	}
}

// Category is an entry of the external category catalog.
type Category struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Service struct {
	ID       string `json:"id" db:"id"`
	Category string `json:"category" db:"category"`
	Name     string `json:"name" db:"name"`
}
