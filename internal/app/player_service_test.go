package app_test

import (
	"context"
	"testing"

	"trivia-live/internal/domain"
)

func TestJoinValidatesDisplayName(t *testing.T) {
	ctx := context.Background()
	_, players, store := newTestEnv()

	if _, err := players.Join(ctx, "g1", "a"); err != domain.ErrInvalidDisplayName {
		t.Fatalf("expected invalid name for 1 char, got %v", err)
	}
	if _, err := players.Join(ctx, "g1", "this name is way too long for a badge"); err != domain.ErrInvalidDisplayName {
		t.Fatalf("expected invalid name for long name, got %v", err)
	}
	roster, _ := store.ListPlayers(ctx, "g1")
	if len(roster) != 0 {
		t.Fatalf("rejected joins must not create players, got %d", len(roster))
	}

	id, err := players.Join(ctx, "g1", "  Ada  ")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	player, ok, _ := store.GetPlayer(ctx, "g1", id)
	if !ok {
		t.Fatalf("expected player created")
	}
	if player.Name != "Ada" {
		t.Fatalf("expected trimmed name, got %q", player.Name)
	}
	if player.Score != 0 || len(player.Answers) != 0 {
		t.Fatalf("expected fresh player, got %+v", player)
	}
}

func TestSubmitAnswerIsFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	host, players, store := newTestEnv()

	mustStartQuestion(t, host, "g1")
	ada := mustJoin(t, players, "g1", "Ada")

	mustSubmit(t, players, "g1", ada, 2)
	// Second submission for the same question is a silent no-op, whatever the choice.
	mustSubmit(t, players, "g1", ada, 3)

	player, _, _ := store.GetPlayer(ctx, "g1", ada)
	if choice := player.Answers[0]; choice != 2 {
		t.Fatalf("expected first answer to stand, got %d", choice)
	}
	game, _ := store.GetGame(ctx, "g1")
	if game.ResponseCounts != [4]int{0, 0, 1, 0} {
		t.Fatalf("duplicate submit must not bump tally, got %v", game.ResponseCounts)
	}
}

func TestSubmitAnswerOutsideQuestionPhaseIsNoOp(t *testing.T) {
	ctx := context.Background()
	host, players, store := newTestEnv()

	if err := host.StartLobby(ctx, "g1"); err != nil {
		t.Fatalf("start lobby: %v", err)
	}
	ada := mustJoin(t, players, "g1", "Ada")

	mustSubmit(t, players, "g1", ada, 2)

	player, _, _ := store.GetPlayer(ctx, "g1", ada)
	if len(player.Answers) != 0 {
		t.Fatalf("lobby-phase submit must record nothing, got %+v", player.Answers)
	}
	game, _ := store.GetGame(ctx, "g1")
	if game.ResponseCounts != [4]int{} {
		t.Fatalf("lobby-phase submit must not bump tally, got %v", game.ResponseCounts)
	}
}

func TestSubmitAnswerRejectsBadChoice(t *testing.T) {
	ctx := context.Background()
	host, players, _ := newTestEnv()

	mustStartQuestion(t, host, "g1")
	ada := mustJoin(t, players, "g1", "Ada")

	if err := players.SubmitAnswer(ctx, "g1", ada, -1); err != domain.ErrInvalidChoice {
		t.Fatalf("expected invalid choice, got %v", err)
	}
	if err := players.SubmitAnswer(ctx, "g1", ada, 4); err != domain.ErrInvalidChoice {
		t.Fatalf("expected invalid choice, got %v", err)
	}
}

func TestSubmitAnswerRequiresJoin(t *testing.T) {
	ctx := context.Background()
	host, players, _ := newTestEnv()

	mustStartQuestion(t, host, "g1")
	if err := players.SubmitAnswer(ctx, "g1", "ghost", 1); err != domain.ErrPlayerNotFound {
		t.Fatalf("expected player-not-found, got %v", err)
	}
}
