package app

import (
	"sort"

	"trivia-live/internal/domain"
)

// LeaderboardSize caps the host dashboard leaderboard.
const LeaderboardSize = 5

// NoAnswer marks "this player has not answered the current question".
const NoAnswer = -1

// ChoiceTally is one bar of the live response distribution.
type ChoiceTally struct {
	ChoiceIndex int     `json:"choiceIndex"`
	Count       int     `json:"count"`
	Percent     float64 `json:"percent"`
}

// LeaderboardEntry is a row of the host dashboard leaderboard.
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// HostView is the derived read-model the host dashboard renders. It is a pure
// projection over the latest game and player snapshots and holds no state.
type HostView struct {
	GameID         string                          `json:"gameId"`
	Phase          domain.Phase                    `json:"phase"`
	QuestionIndex  int                             `json:"questionIndex"`
	QuestionCount  int                             `json:"questionCount"`
	Question       domain.Question                 `json:"question"`
	ShowResults    bool                            `json:"showResults"`
	Distribution   [domain.ChoiceCount]ChoiceTally `json:"distribution"`
	TotalResponses int                             `json:"totalResponses"`
	Leaderboard    []LeaderboardEntry              `json:"leaderboard"`
	PlayerCount    int                             `json:"playerCount"`
	Theme          string                          `json:"theme"`
}

// PlayerView is the derived read-model one player's device renders. The
// correct choice is revealed only while results are shown.
type PlayerView struct {
	GameID        string                     `json:"gameId"`
	Phase         domain.Phase               `json:"phase"`
	QuestionIndex int                        `json:"questionIndex"`
	QuestionCount int                        `json:"questionCount"`
	Prompt        string                     `json:"prompt"`
	Choices       [domain.ChoiceCount]string `json:"choices"`
	ShowResults   bool                       `json:"showResults"`
	YourChoice    int                        `json:"yourChoice"`
	YourCorrect   bool                       `json:"yourCorrect"`
	CorrectIndex  int                        `json:"correctIndex"`
	Score         int                        `json:"score"`
	Theme         string                     `json:"theme"`
}

// BuildHostView projects the host dashboard from snapshots. The question index
// is clamped before indexing, so a stored index past the end of a shorter set
// still renders the last question.
func BuildHostView(gameID string, game domain.GameState, players map[string]domain.Player, set domain.QuestionSet) HostView {
	game = game.Normalized()
	index := domain.ClampIndex(game.CurrentQuestionIndex, len(set.Questions))

	view := HostView{
		GameID:        gameID,
		Phase:         game.Phase,
		QuestionIndex: index,
		QuestionCount: len(set.Questions),
		ShowResults:   game.ShowResults,
		PlayerCount:   len(players),
		Theme:         game.Theme,
	}
	if len(set.Questions) > 0 {
		view.Question = set.Questions[index]
	}

	total := 0
	for _, count := range game.ResponseCounts {
		total += count
	}
	view.TotalResponses = total
	for choice, count := range game.ResponseCounts {
		percent := 0.0
		if total > 0 {
			percent = float64(count) / float64(total) * 100
		}
		view.Distribution[choice] = ChoiceTally{ChoiceIndex: choice, Count: count, Percent: percent}
	}

	entries := make([]LeaderboardEntry, 0, len(players))
	for id, player := range players {
		entries = append(entries, LeaderboardEntry{PlayerID: id, Name: player.Name, Score: player.Score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > LeaderboardSize {
		entries = entries[:LeaderboardSize]
	}
	view.Leaderboard = entries

	return view
}

// BuildPlayerView projects one player's phase-appropriate view from snapshots.
func BuildPlayerView(gameID string, game domain.GameState, player domain.Player, set domain.QuestionSet) PlayerView {
	game = game.Normalized()
	index := domain.ClampIndex(game.CurrentQuestionIndex, len(set.Questions))

	view := PlayerView{
		GameID:        gameID,
		Phase:         game.Phase,
		QuestionIndex: index,
		QuestionCount: len(set.Questions),
		ShowResults:   game.ShowResults,
		YourChoice:    NoAnswer,
		CorrectIndex:  NoAnswer,
		Score:         player.Score,
		Theme:         game.Theme,
	}
	if len(set.Questions) == 0 {
		return view
	}

	question := set.Questions[index]
	view.Prompt = question.Prompt
	view.Choices = question.Choices
	if choice, ok := player.Answers[index]; ok {
		view.YourChoice = choice
		view.YourCorrect = choice == question.CorrectIndex
	}
	if game.ShowResults {
		view.CorrectIndex = question.CorrectIndex
	}
	return view
}
