package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session has not been created.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrResultNotFound is returned when no finished result is stored for a session.
	ErrResultNotFound = errors.New("quiz result not found")
	// ErrFetchFailed marks transport or non-success responses from a question source.
	ErrFetchFailed = errors.New("failed to fetch questions")
	// ErrParseFailed marks a malformed response from a question source.
	ErrParseFailed = errors.New("failed to parse questions")
	// ErrNotEnoughQuestions means the source cannot fill the requested batch.
	ErrNotEnoughQuestions = errors.New("not enough questions available")
	// ErrInvalidRecord indicates a provider record that breaks the MCQ contract.
	ErrInvalidRecord = errors.New("invalid question record")
)
