package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"quizdeck-service/internal/app"
	"quizdeck-service/internal/attempt"
	"quizdeck-service/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// UserResolver maps an opaque session token to the user it belongs to.
type UserResolver interface {
	Get(ctx context.Context, token string) (domain.User, error)
}

// WSHandler drives one attempt per websocket connection: commands flow
// in, attempt snapshots and timer ticks flow out.
type WSHandler struct {
	service  *app.AttemptService
	sessions UserResolver
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService, sessions UserResolver, log *zap.Logger) *WSHandler {
	return &WSHandler{
		service:  service,
		sessions: sessions,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Option int `json:"option"`
}

type jumpPayload struct {
	Index int `json:"index"`
}

type keyPayload struct {
	Key       string `json:"key"`
	Modifier  bool   `json:"modifier"`
	TextInput bool   `json:"textInput"`
}

type voicePayload struct {
	Enabled bool `json:"enabled"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS authenticates the session, begins an attempt for the requested
// quiz, and relays commands and updates until the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID, err := strconv.ParseInt(r.URL.Query().Get("quizId"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid quizId", http.StatusBadRequest)
		return
	}
	token := r.URL.Query().Get("session")
	if token == "" {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	user, err := h.sessions.Get(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid session", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctrl, err := h.service.Begin(r.Context(), user.Username, quizID)
	if err != nil {
		// Missing and invisible quizzes look identical to the client,
		// which routes back to the discovery page with a notice.
		if errors.Is(err, domain.ErrQuizNotFound) {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "notFound", Payload: errorPayload{Message: "no quiz with this quiz id"}})
			return
		}
		h.log.Warn("begin attempt failed", zap.Int64("quizId", quizID), zap.Error(err))
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "could not load quiz"}})
		return
	}
	defer h.service.Release(user.Username)

	updates, cancel := ctrl.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: string(event.Kind), Payload: event.Snapshot}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(ctrl, inbound, send); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctrl *attempt.Controller, inbound inboundMessage, send chan<- outboundMessage[any]) error {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid answer payload")
		}
		return ctrl.SelectAnswer(payload.Option)
	case "advance":
		return ctrl.Advance()
	case "retreat":
		return ctrl.Retreat()
	case "jump":
		var payload jumpPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid jump payload")
		}
		return ctrl.JumpTo(payload.Index)
	case "flag":
		return ctrl.ToggleFlag()
	case "key":
		var payload keyPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid key payload")
		}
		return ctrl.HandleKey(attempt.Key(payload.Key), payload.Modifier, payload.TextInput)
	case "voice":
		var payload voicePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid voice payload")
		}
		ctrl.SetVoiceEnabled(payload.Enabled)
		return nil
	case "submit":
		summary, err := ctrl.RequestSubmit()
		if err != nil {
			return err
		}
		send <- outboundMessage[any]{Type: "summary", Payload: summary}
		return nil
	case "confirm":
		return ctrl.ConfirmSubmit()
	default:
		return errors.New("unsupported message type")
	}
}
