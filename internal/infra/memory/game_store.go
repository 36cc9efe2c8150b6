package memory

import (
	"context"
	"sync"

	"trivia-live/internal/domain"
)

// GameStore is an in-process implementation of app.GameStore. A single mutex
// per store serializes all document mutations, which makes every contract
// point (merge atomicity, first-write-wins answers, exactly-once reveal,
// all-or-nothing reset) hold trivially.
type GameStore struct {
	mu    sync.RWMutex
	games map[string]*gameDoc
}

type gameDoc struct {
	state      domain.GameState
	players    map[string]domain.Player
	gameSubs   map[chan domain.GameState]struct{}
	playerSubs map[chan map[string]domain.Player]struct{}
}

func NewGameStore() *GameStore {
	return &GameStore{games: make(map[string]*gameDoc)}
}

func (s *GameStore) doc(gameID string) *gameDoc {
	if doc, ok := s.games[gameID]; ok {
		return doc
	}
	doc := &gameDoc{
		state:      domain.DefaultGameState(),
		players:    make(map[string]domain.Player),
		gameSubs:   make(map[chan domain.GameState]struct{}),
		playerSubs: make(map[chan map[string]domain.Player]struct{}),
	}
	s.games[gameID] = doc
	return doc
}

func (s *GameStore) GetGame(_ context.Context, gameID string) (domain.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if doc, ok := s.games[gameID]; ok {
		return doc.state.Normalized(), nil
	}
	return domain.DefaultGameState(), nil
}

func (s *GameStore) MergeGame(_ context.Context, gameID string, update domain.GameUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc(gameID)
	applyUpdate(&doc.state, update)
	doc.broadcastGame()
	return nil
}

func (s *GameStore) IncrementResponse(_ context.Context, gameID string, choiceIndex int) error {
	if !domain.ValidChoice(choiceIndex) {
		return domain.ErrInvalidChoice
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc(gameID)
	doc.state.ResponseCounts[choiceIndex]++
	doc.broadcastGame()
	return nil
}

func (s *GameStore) PutPlayer(_ context.Context, gameID, playerID string, player domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc(gameID)
	doc.players[playerID] = player.Clone()
	doc.broadcastPlayers()
	return nil
}

func (s *GameStore) GetPlayer(_ context.Context, gameID, playerID string) (domain.Player, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.games[gameID]
	if !ok {
		return domain.Player{}, false, nil
	}
	player, ok := doc.players[playerID]
	if !ok {
		return domain.Player{}, false, nil
	}
	return player.Clone(), true, nil
}

func (s *GameStore) ListPlayers(_ context.Context, gameID string) (map[string]domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.games[gameID]
	if !ok {
		return map[string]domain.Player{}, nil
	}
	return doc.snapshotPlayers(), nil
}

func (s *GameStore) RecordAnswer(_ context.Context, gameID, playerID string, questionIndex, choiceIndex int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc(gameID)
	player, ok := doc.players[playerID]
	if !ok {
		return false, domain.ErrPlayerNotFound
	}
	if _, answered := player.Answers[questionIndex]; answered {
		return false, nil
	}
	player = player.Clone()
	player.Answers[questionIndex] = choiceIndex
	doc.players[playerID] = player
	doc.broadcastPlayers()
	return true, nil
}

func (s *GameStore) RevealScores(_ context.Context, gameID string, questionIndex, correctChoice int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc(gameID)

	if doc.state.LastScoredQuestionIndex == questionIndex {
		doc.state.Phase = domain.PhaseResults
		doc.state.ShowResults = true
		doc.broadcastGame()
		return nil
	}

	for id, player := range doc.players {
		choice, answered := player.Answers[questionIndex]
		if !answered || choice != correctChoice {
			continue
		}
		player = player.Clone()
		player.Score++
		doc.players[id] = player
	}
	doc.state.Phase = domain.PhaseResults
	doc.state.ShowResults = true
	doc.state.LastScoredQuestionIndex = questionIndex
	doc.broadcastGame()
	doc.broadcastPlayers()
	return nil
}

func (s *GameStore) ResetPlayers(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc(gameID)
	for id, player := range doc.players {
		player.Score = 0
		player.Answers = map[int]int{}
		doc.players[id] = player
	}
	doc.broadcastPlayers()
	return nil
}

func (s *GameStore) WatchGame(_ context.Context, gameID string) (<-chan domain.GameState, func(), error) {
	ch := make(chan domain.GameState, 8)

	s.mu.Lock()
	doc := s.doc(gameID)
	doc.gameSubs[ch] = struct{}{}
	initial := doc.state.Normalized()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := doc.gameSubs[ch]; ok {
			delete(doc.gameSubs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *GameStore) WatchPlayers(_ context.Context, gameID string) (<-chan map[string]domain.Player, func(), error) {
	ch := make(chan map[string]domain.Player, 8)

	s.mu.Lock()
	doc := s.doc(gameID)
	doc.playerSubs[ch] = struct{}{}
	initial := doc.snapshotPlayers()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := doc.playerSubs[ch]; ok {
			delete(doc.playerSubs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// broadcastGame fans the latest state out to subscribers. A full buffer means
// the subscriber is behind; dropping its oldest pending snapshot keeps slow
// clients from blocking the store.
func (d *gameDoc) broadcastGame() {
	state := d.state.Normalized()
	for ch := range d.gameSubs {
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}

func (d *gameDoc) broadcastPlayers() {
	players := d.snapshotPlayers()
	for ch := range d.playerSubs {
		select {
		case ch <- players:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- players
		}
	}
}

func (d *gameDoc) snapshotPlayers() map[string]domain.Player {
	players := make(map[string]domain.Player, len(d.players))
	for id, player := range d.players {
		players[id] = player.Clone()
	}
	return players
}

func applyUpdate(state *domain.GameState, update domain.GameUpdate) {
	if update.Phase != nil {
		state.Phase = *update.Phase
	}
	if update.CurrentQuestionIndex != nil {
		state.CurrentQuestionIndex = *update.CurrentQuestionIndex
	}
	if update.ShowResults != nil {
		state.ShowResults = *update.ShowResults
	}
	if update.LastScoredQuestionIndex != nil {
		state.LastScoredQuestionIndex = *update.LastScoredQuestionIndex
	}
	if update.ResponseCounts != nil {
		state.ResponseCounts = *update.ResponseCounts
	}
	if update.QuestionSet != nil {
		state.QuestionSet = *update.QuestionSet
	}
	if update.Theme != nil {
		state.Theme = *update.Theme
	}
}
