package app

import (
	"context"

	"trivia-live/internal/domain"
)

// GameStore is the document-store contract the game protocols run against.
// Implementations must provide per-document atomicity: merges and increments
// never expose partial writes, RevealScores runs its guard and its score
// increments as one conditional transaction, and ResetPlayers applies as a
// single batch. Watch channels deliver a full snapshot on registration and
// after every committed change, in commit order, until cancelled.
type GameStore interface {
	// GetGame reads the session document, substituting defaults when absent.
	GetGame(ctx context.Context, gameID string) (domain.GameState, error)
	// MergeGame writes the set fields of update, creating the document if needed.
	MergeGame(ctx context.Context, gameID string, update domain.GameUpdate) error
	// IncrementResponse adds 1 to one tally slot without a prior read.
	IncrementResponse(ctx context.Context, gameID string, choiceIndex int) error

	PutPlayer(ctx context.Context, gameID, playerID string, player domain.Player) error
	GetPlayer(ctx context.Context, gameID, playerID string) (domain.Player, bool, error)
	// ListPlayers scans all player documents of a game, snapshot-consistent.
	ListPlayers(ctx context.Context, gameID string) (map[string]domain.Player, error)

	// RecordAnswer stores answers[questionIndex]=choiceIndex first-write-wins.
	// Returns false without mutation when an answer already exists.
	RecordAnswer(ctx context.Context, gameID, playerID string, questionIndex, choiceIndex int) (bool, error)
	// RevealScores flips the game into results. Unless questionIndex was
	// already scored it also increments, in the same transaction, the score of
	// every player whose recorded answer matches correctChoice and writes the
	// scored-question sentinel. Safe to call repeatedly and concurrently.
	RevealScores(ctx context.Context, gameID string, questionIndex, correctChoice int) error
	// ResetPlayers zeroes score and answers for every player in one batch.
	ResetPlayers(ctx context.Context, gameID string) error

	WatchGame(ctx context.Context, gameID string) (<-chan domain.GameState, func(), error)
	WatchPlayers(ctx context.Context, gameID string) (<-chan map[string]domain.Player, func(), error)
}
