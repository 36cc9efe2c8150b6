package catalog

import "trivia-live/internal/domain"

// BuiltinSets returns the question sets compiled into the binary. The service
// runs entirely from these when no database is configured.
func BuiltinSets() map[string]domain.QuestionSet {
	general := domain.QuestionSet{
		Name: domain.DefaultQuestionSet,
		Questions: []domain.Question{
			{
				ID:           "q0",
				Prompt:       "What is the capital of France?",
				Choices:      [4]string{"London", "Berlin", "Paris", "Madrid"},
				CorrectIndex: 2,
			},
			{
				ID:           "q1",
				Prompt:       "Which planet is known as the Red Planet?",
				Choices:      [4]string{"Venus", "Mars", "Jupiter", "Saturn"},
				CorrectIndex: 1,
			},
			{
				ID:           "q2",
				Prompt:       "How many continents are there?",
				Choices:      [4]string{"5", "6", "7", "8"},
				CorrectIndex: 2,
			},
			{
				ID:           "q3",
				Prompt:       "What is the largest ocean on Earth?",
				Choices:      [4]string{"Atlantic", "Indian", "Arctic", "Pacific"},
				CorrectIndex: 3,
			},
			{
				ID:           "q4",
				Prompt:       "In which year did World War II end?",
				Choices:      [4]string{"1943", "1944", "1945", "1946"},
				CorrectIndex: 2,
			},
			{
				ID:           "q5",
				Prompt:       "What is the chemical symbol for gold?",
				Choices:      [4]string{"Go", "Gd", "Au", "Ag"},
				CorrectIndex: 2,
			},
			{
				ID:           "q6",
				Prompt:       "Which programming language is known for web browsers?",
				Choices:      [4]string{"Python", "Java", "JavaScript", "C++"},
				CorrectIndex: 2,
			},
			{
				ID:           "q7",
				Prompt:       "How many sides does a hexagon have?",
				Choices:      [4]string{"5", "6", "7", "8"},
				CorrectIndex: 1,
			},
		},
	}
	return map[string]domain.QuestionSet{general.Name: general}
}
