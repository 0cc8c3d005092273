package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/intake/service"
	appmodels "github.com/Jamolkhon5/intake/internal/models"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type wsInbound struct {
	Type    string   `json:"type"`
	Message string   `json:"message,omitempty"`
	Photos  []string `json:"photos,omitempty"`
	FieldID string   `json:"fieldId,omitempty"`
}

type wsOutbound struct {
	Type    string              `json:"type"`
	Result  *service.TurnResult `json:"result,omitempty"`
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
}

// ServeWS streams turns of an existing session over a websocket.
// Inbound frames are "send", "focus" and "ping".
func (h *IntakeHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.With(id, func(*service.Conversation) error { return nil }); err != nil {
		h.fail(w, err)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		h.log.Warn("intake ws: set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan wsOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}

		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			push(ctx, writeCh, wsOutbound{Type: "pong"})
		case "send":
			res, err := h.turn(ctx, id, appmodels.ChatRequest{Message: in.Message, Photos: in.Photos})
			if err != nil {
				push(ctx, writeCh, wsOutbound{Type: "error", Code: "internal", Message: err.Error()})
				continue
			}
			push(ctx, writeCh, wsOutbound{Type: "turn", Result: &res})
		case "focus":
			res, err := h.focus(ctx, id, models.FieldID(strings.TrimSpace(in.FieldID)))
			if err != nil {
				push(ctx, writeCh, wsOutbound{Type: "error", Code: "invalid_argument", Message: err.Error()})
				continue
			}
			push(ctx, writeCh, wsOutbound{Type: "turn", Result: &res})
		case "":
			push(ctx, writeCh, wsOutbound{Type: "error", Code: "invalid_argument", Message: "type is required"})
		default:
			push(ctx, writeCh, wsOutbound{Type: "error", Code: "invalid_argument", Message: "unsupported type: " + in.Type})
		}
	}
}

func push(ctx context.Context, writeCh chan<- wsOutbound, out wsOutbound) {
	select {
	case writeCh <- out:
	case <-ctx.Done():
	}
}
