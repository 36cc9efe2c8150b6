package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"trivia-live/internal/app"
	"trivia-live/internal/catalog"
	"trivia-live/internal/domain"
)

// DefaultGameID is the well-known session used when a client names none.
const DefaultGameID = "allhands"

// Handler wires the host and player protocols onto websockets plus a plain
// HTTP join endpoint.
type Handler struct {
	host     *app.HostService
	players  *app.PlayerService
	store    app.GameStore
	catalog  catalog.Repository
	upgrader websocket.Upgrader
}

func NewHandler(host *app.HostService, players *app.PlayerService, store app.GameStore, cat catalog.Repository) *Handler {
	return &Handler{
		host:    host,
		players: players,
		store:   store,
		catalog: cat,
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
	ChoiceIndex int `json:"choiceIndex"`
}

type configurePayload struct {
	QuestionSet string `json:"questionSet"`
	Theme       string `json:"theme"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinRequest struct {
	Name string `json:"name"`
}

type joinResponse struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

// Join handles POST /join: validates the display name, creates the player
// document, and returns the generated player id the client must persist.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	gameID := gameIDFromRequest(r)

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid join payload"})
		return
	}
	playerID, err := h.players.Join(r.Context(), gameID, req.Name)
	if errors.Is(err, domain.ErrInvalidDisplayName) {
		writeJSON(w, http.StatusUnprocessableEntity, errorPayload{Message: err.Error()})
		return
	}
	if err != nil {
		log.Printf("join failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, errorPayload{Message: "could not join, try again"})
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{GameID: gameID, PlayerID: playerID})
}

// ServePlayWS upgrades a player connection. The server pushes a fresh
// PlayerView whenever the game or the roster changes and accepts answer
// submissions.
func (h *Handler) ServePlayWS(w http.ResponseWriter, r *http.Request) {
	gameID := gameIDFromRequest(r)
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		http.Error(w, "missing playerId", http.StatusBadRequest)
		return
	}
	if _, ok, err := h.store.GetPlayer(r.Context(), gameID, playerID); err != nil || !ok {
		http.Error(w, "unknown player, join first", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	h.serve(conn, r, gameID, func(game domain.GameState, players map[string]domain.Player, set domain.QuestionSet) outboundMessage[any] {
		view := app.BuildPlayerView(gameID, game, players[playerID], set)
		return outboundMessage[any]{Type: "view", Payload: view}
	}, func(inbound inboundMessage, send chan<- outboundMessage[any]) {
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid answer payload")
				return
			}
			if err := h.players.SubmitAnswer(r.Context(), gameID, playerID, payload.ChoiceIndex); err != nil {
				send <- errorMessage(err.Error())
			}
		default:
			send <- errorMessage("unsupported message type")
		}
	})
}

// ServeHostWS upgrades a host dashboard connection. The server pushes a fresh
// HostView on every change and accepts the host control commands.
func (h *Handler) ServeHostWS(w http.ResponseWriter, r *http.Request) {
	gameID := gameIDFromRequest(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	h.serve(conn, r, gameID, func(game domain.GameState, players map[string]domain.Player, set domain.QuestionSet) outboundMessage[any] {
		view := app.BuildHostView(gameID, game, players, set)
		return outboundMessage[any]{Type: "dashboard", Payload: view}
	}, func(inbound inboundMessage, send chan<- outboundMessage[any]) {
		var err error
		switch inbound.Type {
		case "startLobby":
			err = h.host.StartLobby(r.Context(), gameID)
		case "startQuestion":
			err = h.host.StartQuestion(r.Context(), gameID)
		case "nextQuestion":
			err = h.host.NextQuestion(r.Context(), gameID)
		case "prevQuestion":
			err = h.host.PrevQuestion(r.Context(), gameID)
		case "revealResults":
			err = h.host.RevealResults(r.Context(), gameID)
		case "resetGame":
			err = h.host.ResetGame(r.Context(), gameID)
		case "configure":
			var payload configurePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid configure payload")
				return
			}
			err = h.host.Configure(r.Context(), gameID, payload.QuestionSet, payload.Theme)
		default:
			send <- errorMessage("unsupported message type")
			return
		}
		if err != nil {
			send <- errorMessage(err.Error())
		}
	})
}

// serve runs the shared connection choreography: a writer goroutine owns the
// socket, a pump recomputes the projection from the latest game and roster
// snapshots, and the read loop dispatches inbound messages until the client
// goes away.
func (h *Handler) serve(
	conn *websocket.Conn,
	r *http.Request,
	gameID string,
	project func(domain.GameState, map[string]domain.Player, domain.QuestionSet) outboundMessage[any],
	dispatch func(inboundMessage, chan<- outboundMessage[any]),
) {
	gameCh, cancelGame, err := h.store.WatchGame(r.Context(), gameID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	defer cancelGame()

	playersCh, cancelPlayers, err := h.store.WatchPlayers(r.Context(), gameID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	defer cancelPlayers()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		var game domain.GameState
		var players map[string]domain.Player
		haveGame, havePlayers := false, false
		for {
			select {
			case g, ok := <-gameCh:
				if !ok {
					return
				}
				game, haveGame = g, true
			case p, ok := <-playersCh:
				if !ok {
					return
				}
				players, havePlayers = p, true
			case <-closeSignals:
				return
			}
			if !haveGame || !havePlayers {
				continue
			}
			set, err := h.catalog.GetSet(r.Context(), game.QuestionSet)
			if err != nil {
				log.Printf("load question set %q: %v", game.QuestionSet, err)
				continue
			}
			select {
			case send <- project(game, players, set):
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
		dispatch(inbound, send)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

func gameIDFromRequest(r *http.Request) string {
	if gameID := r.URL.Query().Get("game"); gameID != "" {
		return gameID
	}
	return DefaultGameID
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
