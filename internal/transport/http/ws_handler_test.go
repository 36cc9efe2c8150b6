package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"trivia-live/internal/app"
	"trivia-live/internal/catalog"
	"trivia-live/internal/infra/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.HostService, *app.PlayerService) {
	t.Helper()
	store := memory.NewGameStore()
	sets := memory.NewCatalogRepository(catalog.NewStaticSetLoader(catalog.BuiltinSets()), time.Minute)
	host := app.NewHostService(store, sets)
	players := app.NewPlayerService(store, sets)
	handler := NewHandler(host, players, store, sets)

	mux := http.NewServeMux()
	mux.HandleFunc("/join", handler.Join)
	mux.HandleFunc("/ws/host", handler.ServeHostWS)
	mux.HandleFunc("/ws/play", handler.ServePlayWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, host, players
}

func TestJoinValidatesName(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := postJoin(t, server, "a")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for 1-char name, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJoin(t, server, "Ada")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var joined struct {
		GameID   string `json:"gameId"`
		PlayerID string `json:"playerId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&joined); err != nil {
		t.Fatalf("decode join response: %v", err)
	}
	if joined.GameID != DefaultGameID || joined.PlayerID == "" {
		t.Fatalf("unexpected join response %+v", joined)
	}
}

func TestPlayerAnswerFlow(t *testing.T) {
	server, host, players := newTestServer(t)
	ctx := context.Background()

	if err := host.StartQuestion(ctx, DefaultGameID); err != nil {
		t.Fatalf("start question: %v", err)
	}
	playerID, err := players.Join(ctx, DefaultGameID, "Ada")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	conn := dialWS(t, server, "/ws/play?playerId="+playerID)
	defer conn.Close()

	// Initial projection arrives before any input.
	msgType, payload := readNext(t, conn)
	if msgType != "view" {
		t.Fatalf("expected view, got %s", msgType)
	}
	if payload["phase"] != "question" {
		t.Fatalf("expected question phase, got %v", payload["phase"])
	}

	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"choiceIndex": 2},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		msgType, payload = readNext(t, conn)
		if msgType != "view" {
			continue
		}
		if choice, ok := payload["yourChoice"].(float64); ok && int(choice) == 2 {
			return
		}
	}
	t.Fatalf("never observed own answer in view")
}

func TestHostCommandFlow(t *testing.T) {
	server, _, _ := newTestServer(t)

	conn := dialWS(t, server, "/ws/host")
	defer conn.Close()

	msgType, payload := readNext(t, conn)
	if msgType != "dashboard" {
		t.Fatalf("expected dashboard, got %s", msgType)
	}
	if payload["phase"] != "lobby" {
		t.Fatalf("expected lobby phase initially, got %v", payload["phase"])
	}

	if err := conn.WriteJSON(map[string]any{"type": "startQuestion"}); err != nil {
		t.Fatalf("write command: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		msgType, payload = readNext(t, conn)
		if msgType == "dashboard" && payload["phase"] == "question" {
			return
		}
	}
	t.Fatalf("never observed question phase on dashboard")
}

func TestPlayWSRequiresKnownPlayer(t *testing.T) {
	server, _, _ := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws/play?playerId=ghost"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail for unknown player")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func postJoin(t *testing.T, server *httptest.Server, name string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"name": name})
	resp, err := http.Post(server.URL+"/join", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post join: %v", err)
	}
	return resp
}

func dialWS(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	return conn
}

func readNext(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
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
