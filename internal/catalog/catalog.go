package catalog

import (
	"context"

	"trivia-live/internal/domain"
)

// Repository serves question sets to the game protocols (usually through a cache).
type Repository interface {
	GetSet(ctx context.Context, name string) (domain.QuestionSet, error)
}

// SetLoader fetches question set content from a backing store (e.g. Postgres).
type SetLoader interface {
	LoadSet(ctx context.Context, name string) (domain.QuestionSet, error)
}

// StaticSetLoader is a loader backed by an in-memory map (built-in content, tests).
type StaticSetLoader struct {
	sets map[string]domain.QuestionSet
}

func NewStaticSetLoader(sets map[string]domain.QuestionSet) *StaticSetLoader {
	return &StaticSetLoader{sets: sets}
}

func (l *StaticSetLoader) LoadSet(_ context.Context, name string) (domain.QuestionSet, error) {
	if set, ok := l.sets[name]; ok {
		return set, nil
	}
	return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
}
