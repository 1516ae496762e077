package http

import (
	"encoding/json"
	"net/http"

	"brainring-service/internal/domain"
	"brainring-service/internal/engine"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler wires the arbitration engine into HTTP: session creation over REST
// and live round actions over a websocket.
type Handler struct {
	registry *engine.Registry
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHandler(registry *engine.Registry, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		registry: registry,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
	// ClientTimestamp is advisory only: client clocks are untrusted and are
	// never used for buzz ordering.
	ClientTimestamp int64           `json:"clientTimestamp,omitempty"`
	Payload         json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type pausePayload struct {
	RemainingSeconds int    `json:"remainingSeconds"`
	DraftAnswer      string `json:"draftAnswer"`
	DiscussionNotes  string `json:"discussionNotes"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// CreateSession handles POST /sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var cfg domain.SessionConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid session config", http.StatusBadRequest)
		return
	}
	snap, err := h.registry.CreateSession(r.Context(), cfg)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(snap)
}

// GetSession handles GET /sessions?sessionId=...
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}
	snap, err := h.registry.GetSnapshot(r.Context(), sessionID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}

func statusFor(err error) int {
	switch err {
	case domain.ErrSessionNotFound, domain.ErrRoundNotFound, domain.ErrBankNotFound, domain.ErrQuestionNotFound:
		return http.StatusNotFound
	case domain.ErrInvalidTransition, domain.ErrIllegalRoundTransition, domain.ErrNoPauseSnapshot:
		return http.StatusConflict
	case domain.ErrUnknownPlayer:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the engine.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	userID := r.URL.Query().Get("userId")
	if sessionID == "" || userID == "" {
		http.Error(w, "missing sessionId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	snap, err := h.registry.GetSnapshot(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	events, cancel, err := h.registry.Subscribe(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// A single writer goroutine serializes all frames on the connection.
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
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "event", Payload: ev}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: snap}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, sessionID, userID, inbound, send)
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *Handler) dispatch(r *http.Request, sessionID, userID string, inbound inboundMessage, send chan<- outboundMessage[any]) {
	ctx := r.Context()
	switch inbound.Type {
	case "startRound":
		round, err := h.registry.StartRound(ctx, sessionID)
		if err != nil {
			send <- errMessage(err)
			return
		}
		send <- outboundMessage[any]{Type: "round", Payload: round}
	case "buzz":
		res, err := h.registry.Buzz(ctx, sessionID, userID)
		if err != nil {
			send <- errMessage(err)
			return
		}
		send <- outboundMessage[any]{Type: "buzzResult", Payload: res}
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
			return
		}
		outcome, err := h.registry.SubmitAnswer(ctx, sessionID, userID, payload.Answer)
		if err != nil {
			send <- errMessage(err)
			return
		}
		send <- outboundMessage[any]{Type: "answerResult", Payload: outcome}
	case "pause":
		var payload pausePayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid pause payload"}}
				return
			}
		}
		err := h.registry.Pause(ctx, sessionID, domain.PauseSnapshot{
			RemainingSeconds: payload.RemainingSeconds,
			DraftAnswer:      payload.DraftAnswer,
			DiscussionNotes:  payload.DiscussionNotes,
		})
		if err != nil {
			send <- errMessage(err)
			return
		}
		send <- outboundMessage[any]{Type: "paused", Payload: struct{}{}}
	case "resume":
		snap, err := h.registry.Resume(ctx, sessionID)
		if err != nil {
			send <- errMessage(err)
			return
		}
		send <- outboundMessage[any]{Type: "resumed", Payload: snap}
	case "hint":
		if err := h.registry.MarkHintUsed(ctx, sessionID); err != nil {
			send <- errMessage(err)
			return
		}
		send <- outboundMessage[any]{Type: "hintMarked", Payload: struct{}{}}
	case "abandon":
		if err := h.registry.Abandon(ctx, sessionID); err != nil {
			send <- errMessage(err)
			return
		}
		send <- outboundMessage[any]{Type: "abandoned", Payload: struct{}{}}
	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
}

func errMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
