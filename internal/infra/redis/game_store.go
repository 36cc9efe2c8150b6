package redis

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-live/internal/domain"
)

// GameStore implements app.GameStore on Redis.
//
// Layout:
//
//	game:{id}                 hash: phase, questionIndex, showResults,
//	                          lastScored, questionSet, theme, responses:0..3
//	game:{id}:players         set of player ids
//	game:{id}:player:{pid}    hash: name, score, joinedAt, answer:{q}
//
// Merges are HSET of the present fields, the tally uses HINCRBY, answers use
// HSETNX for the first-write-wins guard, reset runs in one MULTI/EXEC batch,
// and RevealScores runs under WATCH on the game key so the already-scored
// guard and the score increments commit as one conditional transaction.
// Every committed write publishes a notification; watchers re-read the
// documents and fan the fresh snapshot out.
type GameStore struct {
	client *redis.Client
}

const (
	fieldPhase         = "phase"
	fieldQuestionIndex = "questionIndex"
	fieldShowResults   = "showResults"
	fieldLastScored    = "lastScored"
	fieldQuestionSet   = "questionSet"
	fieldTheme         = "theme"

	fieldName     = "name"
	fieldScore    = "score"
	fieldJoinedAt = "joinedAt"

	answerFieldPrefix   = "answer:"
	responseFieldPrefix = "responses:"

	// revealAttempts bounds WATCH retries when reveals collide.
	revealAttempts = 5
)

func NewGameStore(client *redis.Client) *GameStore {
	return &GameStore{client: client}
}

func (s *GameStore) GetGame(ctx context.Context, gameID string) (domain.GameState, error) {
	fields, err := s.client.HGetAll(ctx, s.gameKey(gameID)).Result()
	if err != nil {
		return domain.GameState{}, err
	}
	return decodeGameHash(fields), nil
}

func (s *GameStore) MergeGame(ctx context.Context, gameID string, update domain.GameUpdate) error {
	pairs := encodeGameUpdate(update)
	if len(pairs) == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, s.gameKey(gameID), pairs...).Err(); err != nil {
		return err
	}
	return s.publishGame(ctx, gameID)
}

func (s *GameStore) IncrementResponse(ctx context.Context, gameID string, choiceIndex int) error {
	if !domain.ValidChoice(choiceIndex) {
		return domain.ErrInvalidChoice
	}
	if err := s.client.HIncrBy(ctx, s.gameKey(gameID), responseField(choiceIndex), 1).Err(); err != nil {
		return err
	}
	return s.publishGame(ctx, gameID)
}

func (s *GameStore) PutPlayer(ctx context.Context, gameID, playerID string, player domain.Player) error {
	key := s.playerKey(gameID, playerID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, s.playersKey(gameID), playerID)
		pipe.HSet(ctx, key,
			fieldName, player.Name,
			fieldScore, player.Score,
			fieldJoinedAt, player.JoinedAt.Unix(),
		)
		for q, choice := range player.Answers {
			pipe.HSet(ctx, key, answerField(q), choice)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.publishPlayers(ctx, gameID)
}

func (s *GameStore) GetPlayer(ctx context.Context, gameID, playerID string) (domain.Player, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.playerKey(gameID, playerID)).Result()
	if err != nil {
		return domain.Player{}, false, err
	}
	if len(fields) == 0 {
		return domain.Player{}, false, nil
	}
	return decodePlayerHash(fields), true, nil
}

func (s *GameStore) ListPlayers(ctx context.Context, gameID string) (map[string]domain.Player, error) {
	ids, err := s.client.SMembers(ctx, s.playersKey(gameID)).Result()
	if err != nil {
		return nil, err
	}
	players := make(map[string]domain.Player, len(ids))
	for _, id := range ids {
		fields, err := s.client.HGetAll(ctx, s.playerKey(gameID, id)).Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}
		players[id] = decodePlayerHash(fields)
	}
	return players, nil
}

func (s *GameStore) RecordAnswer(ctx context.Context, gameID, playerID string, questionIndex, choiceIndex int) (bool, error) {
	key := s.playerKey(gameID, playerID)
	exists, err := s.client.HExists(ctx, key, fieldName).Result()
	if err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrPlayerNotFound
	}
	set, err := s.client.HSetNX(ctx, key, answerField(questionIndex), choiceIndex).Result()
	if err != nil || !set {
		return false, err
	}
	return true, s.publishPlayers(ctx, gameID)
}

func (s *GameStore) RevealScores(ctx context.Context, gameID string, questionIndex, correctChoice int) error {
	gameKey := s.gameKey(gameID)

	reveal := func(tx *redis.Tx) error {
		lastScored := domain.NoQuestionScored
		if raw, err := tx.HGet(ctx, gameKey, fieldLastScored).Result(); err == nil {
			if n, convErr := strconv.Atoi(raw); convErr == nil {
				lastScored = n
			}
		} else if err != redis.Nil {
			return err
		}

		if lastScored == questionIndex {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, gameKey, fieldPhase, string(domain.PhaseResults), fieldShowResults, 1)
				return nil
			})
			return err
		}

		ids, err := tx.SMembers(ctx, s.playersKey(gameID)).Result()
		if err != nil {
			return err
		}
		var winners []string
		for _, id := range ids {
			raw, err := tx.HGet(ctx, s.playerKey(gameID, id), answerField(questionIndex)).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return err
			}
			if choice, convErr := strconv.Atoi(raw); convErr == nil && choice == correctChoice {
				winners = append(winners, id)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range winners {
				pipe.HIncrBy(ctx, s.playerKey(gameID, id), fieldScore, 1)
			}
			pipe.HSet(ctx, gameKey,
				fieldPhase, string(domain.PhaseResults),
				fieldShowResults, 1,
				fieldLastScored, questionIndex,
			)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < revealAttempts; attempt++ {
		err = s.client.Watch(ctx, reveal, gameKey)
		if err != redis.TxFailedErr {
			break
		}
		// Another reveal committed first; re-run against the new sentinel.
	}
	if err != nil {
		return err
	}
	if err := s.publishGame(ctx, gameID); err != nil {
		return err
	}
	return s.publishPlayers(ctx, gameID)
}

func (s *GameStore) ResetPlayers(ctx context.Context, gameID string) error {
	ids, err := s.client.SMembers(ctx, s.playersKey(gameID)).Result()
	if err != nil {
		return err
	}
	type playerReset struct {
		key          string
		answerFields []string
	}
	resets := make([]playerReset, 0, len(ids))
	for _, id := range ids {
		key := s.playerKey(gameID, id)
		fields, err := s.client.HKeys(ctx, key).Result()
		if err != nil {
			return err
		}
		reset := playerReset{key: key}
		for _, field := range fields {
			if strings.HasPrefix(field, answerFieldPrefix) {
				reset.answerFields = append(reset.answerFields, field)
			}
		}
		resets = append(resets, reset)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, reset := range resets {
			pipe.HSet(ctx, reset.key, fieldScore, 0)
			if len(reset.answerFields) > 0 {
				pipe.HDel(ctx, reset.key, reset.answerFields...)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.publishPlayers(ctx, gameID)
}

func (s *GameStore) WatchGame(ctx context.Context, gameID string) (<-chan domain.GameState, func(), error) {
	return watch(ctx, s.client, s.gameChannel(gameID), func() (domain.GameState, error) {
		return s.GetGame(ctx, gameID)
	})
}

func (s *GameStore) WatchPlayers(ctx context.Context, gameID string) (<-chan map[string]domain.Player, func(), error) {
	return watch(ctx, s.client, s.playersChannel(gameID), func() (map[string]domain.Player, error) {
		return s.ListPlayers(ctx, gameID)
	})
}

// watch subscribes to a document's notification channel and re-reads the
// document on every notification, starting with an immediate snapshot. When a
// subscriber falls behind its oldest pending snapshot is dropped so slow
// clients never block delivery.
func watch[T any](ctx context.Context, client *redis.Client, channel string, read func() (T, error)) (<-chan T, func(), error) {
	sub := client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	ch := make(chan T, 8)
	done := make(chan struct{})

	go func() {
		defer close(ch)
		if snapshot, err := read(); err == nil {
			ch <- snapshot
		}
		msgs := sub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				snapshot, err := read()
				if err != nil {
					continue
				}
				select {
				case ch <- snapshot:
				default:
					select {
					case <-ch:
					default:
					}
					ch <- snapshot
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return ch, cancel, nil
}

func (s *GameStore) publishGame(ctx context.Context, gameID string) error {
	return s.client.Publish(ctx, s.gameChannel(gameID), "update").Err()
}

func (s *GameStore) publishPlayers(ctx context.Context, gameID string) error {
	return s.client.Publish(ctx, s.playersChannel(gameID), "update").Err()
}

func (s *GameStore) gameKey(gameID string) string {
	return "game:" + gameID
}

func (s *GameStore) playersKey(gameID string) string {
	return "game:" + gameID + ":players"
}

func (s *GameStore) playerKey(gameID, playerID string) string {
	return "game:" + gameID + ":player:" + playerID
}

func (s *GameStore) gameChannel(gameID string) string {
	return "game:" + gameID + ":updates"
}

func (s *GameStore) playersChannel(gameID string) string {
	return "game:" + gameID + ":player-updates"
}

func answerField(questionIndex int) string {
	return answerFieldPrefix + strconv.Itoa(questionIndex)
}

func responseField(choiceIndex int) string {
	return responseFieldPrefix + strconv.Itoa(choiceIndex)
}

func encodeGameUpdate(update domain.GameUpdate) []interface{} {
	var pairs []interface{}
	if update.Phase != nil {
		pairs = append(pairs, fieldPhase, string(*update.Phase))
	}
	if update.CurrentQuestionIndex != nil {
		pairs = append(pairs, fieldQuestionIndex, *update.CurrentQuestionIndex)
	}
	if update.ShowResults != nil {
		pairs = append(pairs, fieldShowResults, boolField(*update.ShowResults))
	}
	if update.LastScoredQuestionIndex != nil {
		pairs = append(pairs, fieldLastScored, *update.LastScoredQuestionIndex)
	}
	if update.ResponseCounts != nil {
		for choice, count := range update.ResponseCounts {
			pairs = append(pairs, responseField(choice), count)
		}
	}
	if update.QuestionSet != nil {
		pairs = append(pairs, fieldQuestionSet, *update.QuestionSet)
	}
	if update.Theme != nil {
		pairs = append(pairs, fieldTheme, *update.Theme)
	}
	return pairs
}

func boolField(v bool) int {
	if v {
		return 1
	}
	return 0
}

// decodeGameHash applies the defaulting contract: an absent or partially
// populated hash decodes to the same state a freshly reset game has.
func decodeGameHash(fields map[string]string) domain.GameState {
	state := domain.DefaultGameState()
	if raw, ok := fields[fieldPhase]; ok {
		state.Phase = domain.Phase(raw)
	}
	if raw, ok := fields[fieldQuestionIndex]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			state.CurrentQuestionIndex = n
		}
	}
	if raw, ok := fields[fieldShowResults]; ok {
		state.ShowResults = raw == "1"
	}
	if raw, ok := fields[fieldLastScored]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			state.LastScoredQuestionIndex = n
		}
	}
	if raw, ok := fields[fieldQuestionSet]; ok && raw != "" {
		state.QuestionSet = raw
	}
	state.Theme = fields[fieldTheme]
	for choice := 0; choice < domain.ChoiceCount; choice++ {
		if raw, ok := fields[responseField(choice)]; ok {
			if n, err := strconv.Atoi(raw); err == nil {
				state.ResponseCounts[choice] = n
			}
		}
	}
	return state.Normalized()
}

func decodePlayerHash(fields map[string]string) domain.Player {
	player := domain.Player{Answers: map[int]int{}}
	player.Name = fields[fieldName]
	if raw, ok := fields[fieldScore]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			player.Score = n
		}
	}
	if raw, ok := fields[fieldJoinedAt]; ok {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			player.JoinedAt = time.Unix(n, 0)
		}
	}
	for field, raw := range fields {
		if !strings.HasPrefix(field, answerFieldPrefix) {
			continue
		}
		q, err := strconv.Atoi(strings.TrimPrefix(field, answerFieldPrefix))
		if err != nil {
			continue
		}
		if choice, err := strconv.Atoi(raw); err == nil {
			player.Answers[q] = choice
		}
	}
	return player
}
