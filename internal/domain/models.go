package domain

import "time"

// RawQuestion is a multiple-choice record as the trivia provider returns it.
// Text fields are opaque and may carry HTML entities.
type RawQuestion struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question" validate:"required"`
	CorrectAnswer    string   `json:"correct_answer" validate:"required"`
	IncorrectAnswers []string `json:"incorrect_answers" validate:"min=1,dive,required"`
}

// AnswerOption is a possible answer for a question.
type AnswerOption struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Text       string         `json:"text"`
	Category   string         `json:"category,omitempty"`
	Difficulty string         `json:"difficulty,omitempty"`
	Options    []AnswerOption `json:"options"`
}

// CorrectOption returns the option flagged correct.
func (q Question) CorrectOption() AnswerOption {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt
		}
	}
	return AnswerOption{}
}

// Option looks up an option by its text.
func (q Question) Option(text string) (AnswerOption, bool) {
	for _, opt := range q.Options {
		if opt.Text == text {
			return opt, true
		}
	}
	return AnswerOption{}, false
}

// UserAnswer is the answer recorded for one question index.
type UserAnswer struct {
	IsCorrect    bool   `json:"isCorrect"`
	SelectedText string `json:"selectedText"`
	CorrectText  string `json:"correctText"`
}

// BatchRequest describes one fetch of questions from a source. Category is
// the provider's numeric category id; empty means any.
type BatchRequest struct {
	Amount     int
	Category   string
	Difficulty string
}

// PoolKey identifies a cached pool of questions in the question bank.
// Zero values mean "any".
type PoolKey struct {
	Category   string
	Difficulty string
}

// PoolKeyFor maps a batch request onto the bank's pool key.
func PoolKeyFor(req BatchRequest) PoolKey {
	return PoolKey{Category: req.Category, Difficulty: req.Difficulty}
}

// String renders the key for cache keys and logs.
func (k PoolKey) String() string {
	category := k.Category
	if category == "" {
		category = "any"
	}
	difficulty := k.Difficulty
	if difficulty == "" {
		difficulty = "any"
	}
	return category + ":" + difficulty
}

// ResultItem is one row of the results summary.
type ResultItem struct {
	Question   string `json:"question"`
	Answered   bool   `json:"answered"`
	Selected   string `json:"selected"`
	Correct    string `json:"correct"`
	IsCorrect  bool   `json:"isCorrect"`
	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// Result summarizes a finished session.
type Result struct {
	SessionID  string       `json:"sessionId"`
	Score      int          `json:"score"`
	Total      int          `json:"total"`
	Items      []ResultItem `json:"items"`
	FinishedAt time.Time    `json:"finishedAt"`
}
