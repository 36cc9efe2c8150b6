package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"trivia-live/internal/domain"
)

func newTestStore(t *testing.T) (*GameStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewGameStore(client), mr
}

func TestGameHashRoundTripWithDefaults(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	game, err := store.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if game != domain.DefaultGameState() {
		t.Fatalf("expected defaults for missing hash, got %+v", game)
	}

	phase := domain.PhaseQuestion
	index := 2
	show := false
	counts := [4]int{0, 0, 1, 0}
	err = store.MergeGame(ctx, "g1", domain.GameUpdate{
		Phase:                &phase,
		CurrentQuestionIndex: &index,
		ShowResults:          &show,
		ResponseCounts:       &counts,
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	game, err = store.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if game.Phase != domain.PhaseQuestion || game.CurrentQuestionIndex != 2 {
		t.Fatalf("unexpected state %+v", game)
	}
	if game.ResponseCounts != counts {
		t.Fatalf("expected counts %v, got %v", counts, game.ResponseCounts)
	}
	// Fields never written still decode to defaults.
	if game.LastScoredQuestionIndex != domain.NoQuestionScored || game.QuestionSet != domain.DefaultQuestionSet {
		t.Fatalf("expected defaulted fields, got %+v", game)
	}
}

func TestIncrementResponseUsesAtomicIncrement(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	for i := 0; i < 3; i++ {
		if err := store.IncrementResponse(ctx, "g1", 2); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if got := mr.HGet("game:g1", "responses:2"); got != "3" {
		t.Fatalf("expected hash field 3, got %q", got)
	}
}

func TestRecordAnswerUsesSetNX(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	mustPutPlayer(t, store, "g1", "p1", "Ada")

	recorded, err := store.RecordAnswer(ctx, "g1", "p1", 0, 2)
	if err != nil || !recorded {
		t.Fatalf("expected first answer recorded, got recorded=%v err=%v", recorded, err)
	}
	recorded, err = store.RecordAnswer(ctx, "g1", "p1", 0, 3)
	if err != nil || recorded {
		t.Fatalf("expected duplicate rejected, got recorded=%v err=%v", recorded, err)
	}

	player, ok, err := store.GetPlayer(ctx, "g1", "p1")
	if err != nil || !ok {
		t.Fatalf("get player: ok=%v err=%v", ok, err)
	}
	if player.Answers[0] != 2 {
		t.Fatalf("expected original answer kept, got %+v", player.Answers)
	}

	if _, err := store.RecordAnswer(ctx, "g1", "ghost", 0, 1); err != domain.ErrPlayerNotFound {
		t.Fatalf("expected player-not-found, got %v", err)
	}
}

func TestRevealScoresExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	mustPutPlayer(t, store, "g1", "p1", "Ada")
	mustPutPlayer(t, store, "g1", "p2", "Bob")

	if _, err := store.RecordAnswer(ctx, "g1", "p1", 0, 2); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := store.RecordAnswer(ctx, "g1", "p2", 0, 1); err != nil {
		t.Fatalf("answer: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.RevealScores(ctx, "g1", 0, 2); err != nil {
			t.Fatalf("reveal %d: %v", i, err)
		}
	}

	players, err := store.ListPlayers(ctx, "g1")
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if players["p1"].Score != 1 || players["p2"].Score != 0 {
		t.Fatalf("expected scores 1/0, got %d/%d", players["p1"].Score, players["p2"].Score)
	}

	game, _ := store.GetGame(ctx, "g1")
	if game.Phase != domain.PhaseResults || !game.ShowResults || game.LastScoredQuestionIndex != 0 {
		t.Fatalf("unexpected game state %+v", game)
	}
}

func TestResetPlayersClearsScoresAndAnswers(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	mustPutPlayer(t, store, "g1", "p1", "Ada")

	if _, err := store.RecordAnswer(ctx, "g1", "p1", 0, 2); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := store.RevealScores(ctx, "g1", 0, 2); err != nil {
		t.Fatalf("reveal: %v", err)
	}

	if err := store.ResetPlayers(ctx, "g1"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	player, ok, err := store.GetPlayer(ctx, "g1", "p1")
	if err != nil || !ok {
		t.Fatalf("get player: ok=%v err=%v", ok, err)
	}
	if player.Score != 0 || len(player.Answers) != 0 {
		t.Fatalf("expected zeroed player, got %+v", player)
	}
	if player.Name != "Ada" {
		t.Fatalf("reset must keep the roster, got %+v", player)
	}
}

func TestWatchGameDeliversSnapshots(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	ch, cancel, err := store.WatchGame(ctx, "g1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer cancel()

	select {
	case initial := <-ch:
		if initial != domain.DefaultGameState() {
			t.Fatalf("expected default initial snapshot, got %+v", initial)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for initial snapshot")
	}

	phase := domain.PhaseQuestion
	if err := store.MergeGame(ctx, "g1", domain.GameUpdate{Phase: &phase}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case update := <-ch:
			if update.Phase == domain.PhaseQuestion {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for question-phase snapshot")
		}
	}
}

func mustPutPlayer(t *testing.T, store *GameStore, gameID, playerID, name string) {
	t.Helper()
	player := domain.Player{Name: name, Answers: map[int]int{}, JoinedAt: time.Unix(1700000000, 0)}
	if err := store.PutPlayer(context.Background(), gameID, playerID, player); err != nil {
		t.Fatalf("put player: %v", err)
	}
}
