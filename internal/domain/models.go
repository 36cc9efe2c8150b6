package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Phase is the stage a game session is in. It governs which operations
// are accepted: answers are only recorded while the game is in PhaseQuestion.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseQuestion Phase = "question"
	PhaseResults  Phase = "results"
)

const (
	// ChoiceCount is the fixed number of choices per question.
	ChoiceCount = 4

	// NoQuestionScored is the sentinel for "scoring has never run".
	NoQuestionScored = -1

	// DefaultQuestionSet is the catalog set used when a game doesn't name one.
	DefaultQuestionSet = "general"

	minNameLen = 2
	maxNameLen = 20
)

// GameState is the shared session document for one game. All clients converge
// on it through store subscriptions; only the host mutates phase and scoring
// fields, so the document needs no lock of its own.
type GameState struct {
	Phase                   Phase            `json:"phase"`
	CurrentQuestionIndex    int              `json:"currentQuestionIndex"`
	ShowResults             bool             `json:"showResults"`
	LastScoredQuestionIndex int              `json:"lastScoredQuestionIndex"`
	ResponseCounts          [ChoiceCount]int `json:"responseCounts"`
	QuestionSet             string           `json:"questionSet"`
	Theme                   string           `json:"theme"`
}

// DefaultGameState is what every reader substitutes for an absent or partial
// game document, so a not-yet-created game behaves like a freshly reset one.
func DefaultGameState() GameState {
	return GameState{
		Phase:                   PhaseLobby,
		CurrentQuestionIndex:    0,
		ShowResults:             false,
		LastScoredQuestionIndex: NoQuestionScored,
		QuestionSet:             DefaultQuestionSet,
	}
}

// Normalized fills defaults into a partially populated state. Applied at every
// read boundary; never assume a stored document has all fields.
func (g GameState) Normalized() GameState {
	switch g.Phase {
	case PhaseLobby, PhaseQuestion, PhaseResults:
	default:
		g.Phase = PhaseLobby
	}
	if g.CurrentQuestionIndex < 0 {
		g.CurrentQuestionIndex = 0
	}
	if g.LastScoredQuestionIndex < NoQuestionScored {
		g.LastScoredQuestionIndex = NoQuestionScored
	}
	if g.QuestionSet == "" {
		g.QuestionSet = DefaultQuestionSet
	}
	return g
}

// GameUpdate is a partial merge-write against a game document. Nil fields are
// left untouched by the store; a set ResponseCounts replaces all four tallies.
type GameUpdate struct {
	Phase                   *Phase
	CurrentQuestionIndex    *int
	ShowResults             *bool
	LastScoredQuestionIndex *int
	ResponseCounts          *[ChoiceCount]int
	QuestionSet             *string
	Theme                   *string
}

// Player is one joined participant's document within a game. Answers maps
// question index to the chosen choice; a key is present iff the player
// submitted for that question, and once present it never changes.
type Player struct {
	Name     string      `json:"name"`
	Score    int         `json:"score"`
	Answers  map[int]int `json:"answers"`
	JoinedAt time.Time   `json:"joinedAt"`
}

// Clone deep-copies the player so store snapshots never alias live state.
func (p Player) Clone() Player {
	answers := make(map[int]int, len(p.Answers))
	for q, c := range p.Answers {
		answers[q] = c
	}
	p.Answers = answers
	return p
}

// Question models a fixed four-choice question with exactly one correct choice.
type Question struct {
	ID           string              `json:"id"`
	Prompt       string              `json:"prompt"`
	Choices      [ChoiceCount]string `json:"choices"`
	CorrectIndex int                 `json:"correctIndex"`
}

// QuestionSet is a named, ordered, immutable sequence of questions.
type QuestionSet struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// ClampIndex pins a question index into the valid range of a set of the given
// length. Readers always clamp before indexing; stored values may transiently
// point past the end of a shorter set.
func ClampIndex(index, setLen int) int {
	if setLen <= 0 || index < 0 {
		return 0
	}
	if index > setLen-1 {
		return setLen - 1
	}
	return index
}

// ValidChoice reports whether a submitted choice index is in range.
func ValidChoice(choiceIndex int) bool {
	return choiceIndex >= 0 && choiceIndex < ChoiceCount
}

// ValidateDisplayName trims the raw name and enforces the 2-20 character
// bounds. Validation runs before any store interaction.
func ValidateDisplayName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		return "", ErrInvalidDisplayName
	}
	return name, nil
}
