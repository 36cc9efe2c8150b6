package domain

import "errors"

var (
	// ErrInvalidDisplayName is returned when a join name is out of bounds after trimming.
	ErrInvalidDisplayName = errors.New("display name must be 2-20 characters")
	// ErrInvalidChoice is returned when a submitted choice index is not 0..3.
	ErrInvalidChoice = errors.New("choice index out of range")
	// ErrPlayerNotFound is returned when a player acts before joining.
	ErrPlayerNotFound = errors.New("player not found in game")
	// ErrQuestionSetNotFound indicates the named question set could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
)
