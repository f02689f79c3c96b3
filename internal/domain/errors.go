package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a referenced question does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAttemptNotFound is returned when no shuffle mapping is stored for a (user, quiz) pair.
	ErrAttemptNotFound = errors.New("attempt mapping not found")
	// ErrScoreNotFound is returned when a user has no score for a quiz.
	ErrScoreNotFound = errors.New("score not found")
	// ErrInvalidQuestion is the sentinel behind every ValidationError.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrCommitFailed indicates the score ledger rolled back a submission.
	ErrCommitFailed = errors.New("score commit failed")
	// ErrRenderFailed indicates certificate rendering or storage failed.
	ErrRenderFailed = errors.New("certificate rendering failed")
)

// ValidationError describes malformed question data.
type ValidationError struct {
	QuestionID int64
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question %d: %s", e.QuestionID, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidQuestion
}
