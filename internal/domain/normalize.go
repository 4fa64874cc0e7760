package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Normalize converts a provider record into a Question. Incorrect answers
// come first, followed by the correct one; display order is decided later.
func Normalize(raw RawQuestion) (Question, error) {
	if err := validate.Struct(raw); err != nil {
		return Question{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	options := make([]AnswerOption, 0, len(raw.IncorrectAnswers)+1)
	for _, text := range raw.IncorrectAnswers {
		if text == raw.CorrectAnswer {
			return Question{}, fmt.Errorf("%w: incorrect answer %q duplicates the correct one", ErrInvalidRecord, text)
		}
		options = append(options, AnswerOption{Text: text, IsCorrect: false})
	}
	options = append(options, AnswerOption{Text: raw.CorrectAnswer, IsCorrect: true})

	return Question{
		Text:       raw.Question,
		Category:   raw.Category,
		Difficulty: raw.Difficulty,
		Options:    options,
	}, nil
}

// NormalizeAll normalizes a batch; any bad record fails the whole batch.
func NormalizeAll(raws []RawQuestion) ([]Question, error) {
	questions := make([]Question, 0, len(raws))
	for i, raw := range raws {
		q, err := Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrParseFailed, i, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}
