package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"brainring-service/internal/domain"
	"brainring-service/internal/engine"
	"brainring-service/internal/infra/memory"
	"brainring-service/internal/validate"
	"github.com/gorilla/websocket"
)

func TestWebSocketBuzzAnswerFlow(t *testing.T) {
	server, sessionID := newTestServer(t)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?sessionId=" + sessionID + "&userId=alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the session snapshot first.
	if typ, _ := readNext(conn, t); typ != "session" {
		t.Fatalf("expected session, got %s", typ)
	}

	writeAction(conn, t, "startRound", nil)
	waitFor(conn, t, "round")

	writeAction(conn, t, "buzz", nil)
	payload := waitFor(conn, t, "buzzResult")
	if payload["firstBuzzer"] != true {
		t.Fatalf("expected first buzzer, got %+v", payload)
	}

	writeAction(conn, t, "answer", map[string]any{"answer": "Paris"})
	payload = waitFor(conn, t, "answerResult")
	if payload["accepted"] != true || payload["roundComplete"] != true {
		t.Fatalf("expected accepted round-completing answer, got %+v", payload)
	}
	if payload["winnerUserId"] != "alice" {
		t.Fatalf("expected alice to win, got %+v", payload)
	}
}

func TestWebSocketRejectsMissingParams(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateSessionEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	body, _ := json.Marshal(domain.SessionConfig{
		BankID:      "bank-1",
		HostUserID:  "alice",
		Players:     []string{"alice"},
		TotalRounds: 1,
	})
	resp, err := http.Post(server.URL+"/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var snap domain.SessionSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.ID == "" || snap.Status != domain.SessionCreated {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(map[string]domain.QuestionBank{
		"bank-1": {
			ID: "bank-1",
			Questions: []domain.Question{
				{ID: "q1", Prompt: "Capital of France?", Answer: "Paris"},
			},
		},
	}), time.Minute)
	validator := validate.New(validate.Config{}, nil, nil, nil)
	registry := engine.NewRegistry(engine.Config{}, banks, validator, nil, nil, nil)

	snap, err := registry.CreateSession(context.Background(), domain.SessionConfig{
		BankID:      "bank-1",
		HostUserID:  "alice",
		Players:     []string{"alice", "bob"},
		TotalRounds: 1,
		BrainRing:   true,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	handler := NewHandler(registry, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", handler.CreateSession)
	mux.HandleFunc("/ws", handler.ServeWS)
	return httptest.NewServer(mux), snap.ID
}

func writeAction(conn *websocket.Conn, t *testing.T, actionType string, payload map[string]any) {
	t.Helper()
	msg := map[string]any{"type": actionType}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", actionType, err)
	}
}

// waitFor reads frames until one of the wanted type arrives; engine events
// interleave with direct results on the same connection.
func waitFor(conn *websocket.Conn, t *testing.T, want string) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		typ, payload := readNext(conn, t)
		if typ == want {
			return payload
		}
		if typ == "error" {
			t.Fatalf("unexpected error frame while waiting for %s: %+v", want, payload)
		}
	}
	t.Fatalf("did not receive %s", want)
	return nil
}

func readNext(conn *websocket.Conn, t *testing.T) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}
