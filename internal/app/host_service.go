package app

import (
	"context"

	"trivia-live/internal/catalog"
	"trivia-live/internal/domain"
)

// HostService drives the session state machine. Every operation is an atomic
// merge against the game document and legal from any phase; all are idempotent
// or guarded, so a host retrying after a transient store failure is always safe.
type HostService struct {
	store   GameStore
	catalog catalog.Repository
}

func NewHostService(store GameStore, cat catalog.Repository) *HostService {
	return &HostService{store: store, catalog: cat}
}

// StartLobby initializes a fresh session or returns a running one to the lobby.
func (s *HostService) StartLobby(ctx context.Context, gameID string) error {
	return s.store.MergeGame(ctx, gameID, lobbyUpdate())
}

// StartQuestion opens the current question for answers and zeroes the tally.
// The question index is controlled separately by NextQuestion/PrevQuestion.
func (s *HostService) StartQuestion(ctx context.Context, gameID string) error {
	phase := domain.PhaseQuestion
	show := false
	var counts [domain.ChoiceCount]int
	return s.store.MergeGame(ctx, gameID, domain.GameUpdate{
		Phase:          &phase,
		ShowResults:    &show,
		ResponseCounts: &counts,
	})
}

// NextQuestion seeks forward one question and begins accepting answers.
func (s *HostService) NextQuestion(ctx context.Context, gameID string) error {
	return s.seek(ctx, gameID, +1)
}

// PrevQuestion seeks back one question and begins accepting answers.
func (s *HostService) PrevQuestion(ctx context.Context, gameID string) error {
	return s.seek(ctx, gameID, -1)
}

// seek clamps the target index into the active set's range. Seeking zeroes the
// response tally: the stored tally covers the current question only, and stale
// counts from the previous question would render a wrong distribution until
// the host pressed StartQuestion again.
func (s *HostService) seek(ctx context.Context, gameID string, delta int) error {
	game, set, err := s.gameAndSet(ctx, gameID)
	if err != nil {
		return err
	}
	next := domain.ClampIndex(game.CurrentQuestionIndex+delta, len(set.Questions))
	phase := domain.PhaseQuestion
	show := false
	var counts [domain.ChoiceCount]int
	return s.store.MergeGame(ctx, gameID, domain.GameUpdate{
		CurrentQuestionIndex: &next,
		Phase:                &phase,
		ShowResults:          &show,
		ResponseCounts:       &counts,
	})
}

// RevealResults scores the current question exactly once and shows results.
// The store applies the already-scored guard, the per-player increments, and
// the sentinel write as one conditional transaction, so a double click or a
// concurrent re-reveal never scores twice.
func (s *HostService) RevealResults(ctx context.Context, gameID string) error {
	game, set, err := s.gameAndSet(ctx, gameID)
	if err != nil {
		return err
	}
	index := domain.ClampIndex(game.CurrentQuestionIndex, len(set.Questions))
	if len(set.Questions) == 0 {
		return domain.ErrQuestionSetNotFound
	}
	correct := set.Questions[index].CorrectIndex
	return s.store.RevealScores(ctx, gameID, index, correct)
}

// ResetGame returns the session to the lobby and clears every player's score
// and answers in one batch, so no client observes a half-reset roster.
func (s *HostService) ResetGame(ctx context.Context, gameID string) error {
	if err := s.store.MergeGame(ctx, gameID, lobbyUpdate()); err != nil {
		return err
	}
	return s.store.ResetPlayers(ctx, gameID)
}

// Configure selects the active question set and theme. An empty field leaves
// the current value in place.
func (s *HostService) Configure(ctx context.Context, gameID, setName, theme string) error {
	update := domain.GameUpdate{}
	if setName != "" {
		if _, err := s.catalog.GetSet(ctx, setName); err != nil {
			return err
		}
		update.QuestionSet = &setName
	}
	if theme != "" {
		update.Theme = &theme
	}
	return s.store.MergeGame(ctx, gameID, update)
}

func (s *HostService) gameAndSet(ctx context.Context, gameID string) (domain.GameState, domain.QuestionSet, error) {
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return domain.GameState{}, domain.QuestionSet{}, err
	}
	set, err := s.catalog.GetSet(ctx, game.QuestionSet)
	if err != nil {
		return domain.GameState{}, domain.QuestionSet{}, err
	}
	return game, set, nil
}

func lobbyUpdate() domain.GameUpdate {
	phase := domain.PhaseLobby
	index := 0
	show := false
	lastScored := domain.NoQuestionScored
	return domain.GameUpdate{
		Phase:                   &phase,
		CurrentQuestionIndex:    &index,
		ShowResults:             &show,
		LastScoredQuestionIndex: &lastScored,
	}
}
