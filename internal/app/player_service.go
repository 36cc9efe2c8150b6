package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trivia-live/internal/catalog"
	"trivia-live/internal/domain"
)

// PlayerService covers the participant side: joining a game and submitting
// answers. Each player owns exactly one document, so no two participants ever
// write the same record; the shared tally is the only cross-player field and
// is bumped through the store's atomic increment.
type PlayerService struct {
	store   GameStore
	catalog catalog.Repository
	now     func() time.Time
	newID   func() string
}

func NewPlayerService(store GameStore, cat catalog.Repository) *PlayerService {
	return &PlayerService{
		store:   store,
		catalog: cat,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Join validates the display name, creates the player document, and returns
// the generated player id. Name validation happens before any store call.
func (s *PlayerService) Join(ctx context.Context, gameID, rawName string) (string, error) {
	name, err := domain.ValidateDisplayName(rawName)
	if err != nil {
		return "", err
	}
	playerID := s.newID()
	player := domain.Player{
		Name:     name,
		Score:    0,
		Answers:  map[int]int{},
		JoinedAt: s.now(),
	}
	if err := s.store.PutPlayer(ctx, gameID, playerID, player); err != nil {
		return "", err
	}
	return playerID, nil
}

// SubmitAnswer records the player's choice for the current question and bumps
// the session tally. Out-of-phase submissions and resubmissions are silent
// no-ops: both are expected races, not user mistakes. The answer write and the
// tally increment are deliberately separate operations; scoring re-derives
// correctness from each player's own answers and never reads the tally, so the
// narrow window between the two cannot corrupt scores.
func (s *PlayerService) SubmitAnswer(ctx context.Context, gameID, playerID string, choiceIndex int) error {
	if !domain.ValidChoice(choiceIndex) {
		return domain.ErrInvalidChoice
	}

	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.Phase != domain.PhaseQuestion {
		return nil
	}

	set, err := s.catalog.GetSet(ctx, game.QuestionSet)
	if err != nil {
		return err
	}
	index := domain.ClampIndex(game.CurrentQuestionIndex, len(set.Questions))

	recorded, err := s.store.RecordAnswer(ctx, gameID, playerID, index, choiceIndex)
	if err != nil {
		return err
	}
	if !recorded {
		return nil
	}
	return s.store.IncrementResponse(ctx, gameID, choiceIndex)
}
