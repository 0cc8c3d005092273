package service

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	appmodels "github.com/Jamolkhon5/intake/internal/models"
)

const HiccupMessage = "Désolé, j'ai rencontré un petit souci technique. Pouvez-vous répéter ?"

// Conversation is the stateful face of the engine for one session.
// It is not safe for concurrent use; callers serialise turns.
type Conversation struct {
	engine  *Engine
	session Session
}

func NewConversation(engine *Engine, id string) *Conversation {
	return &Conversation{engine: engine, session: engine.NewSession(id)}
}

func (c *Conversation) ID() string { return c.session.ID }

// Start returns the opening question.
func (c *Conversation) Start(ctx context.Context) TurnResult {
	return c.run(func() (Session, TurnResult) {
		return c.engine.Begin(ctx, c.session)
	})
}

func (c *Conversation) ProcessInput(ctx context.Context, text string, photos []string) TurnResult {
	return c.run(func() (Session, TurnResult) {
		return c.engine.Step(ctx, c.session, Input{Text: text, Photos: photos})
	})
}

// GoToQuestion focuses id. Only an unknown field id is an error.
func (c *Conversation) GoToQuestion(ctx context.Context, id models.FieldID) (TurnResult, error) {
	var err error
	res := c.run(func() (Session, TurnResult) {
		s, r, ferr := c.engine.Focus(ctx, c.session, id)
		err = ferr
		return s, r
	})
	if err != nil {
		return TurnResult{}, err
	}
	return res, nil
}

func (c *Conversation) Reset() {
	c.session = c.engine.NewSession(c.session.ID)
}

func (c *Conversation) ProjectState() catalog.ProjectState {
	return c.session.Project.Clone()
}

func (c *Conversation) ConversationState() models.ConversationState {
	return c.session.Clone().Conversation
}

func (c *Conversation) Transcript() []appmodels.ChatMessage {
	return append([]appmodels.ChatMessage(nil), c.session.Transcript...)
}

// Estimate returns the final estimate, nil until the intake is complete.
func (c *Conversation) Estimate() *models.EstimatedPrice {
	return c.session.Clone().Estimate
}

// run applies a transition. A panic leaves the session as it was and is
// answered with the hiccup message.
func (c *Conversation) run(step func() (Session, TurnResult)) (res TurnResult) {
	defer func() {
		if r := recover(); r != nil {
			c.engine.log.Error("conversation: turn aborted",
				zap.String("session", c.session.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			res = c.hiccup()
		}
	}()

	next, out := step()
	c.session = next
	return out
}

func (c *Conversation) hiccup() TurnResult {
	state := c.session.Clone()
	msg := appmodels.NewChatMessage(state.ID, appmodels.RoleSystem, HiccupMessage)
	return TurnResult{
		OutputText:        HiccupMessage,
		IsComplete:        state.Conversation.IsComplete,
		ConversationState: state.Conversation,
		Messages:          []appmodels.ChatMessage{msg},
		Validation:        models.NewValidationState(),
	}
}
