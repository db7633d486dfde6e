package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the attempt and standing services
// matches exactly one of these with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
	ErrValidation      = errors.New("validation failed")
	ErrQuotaExceeded   = errors.New("attempt limit reached")
	ErrPaymentRequired = errors.New("payment required")
	// ErrConflict is retryable: a concurrent writer won a uniqueness race.
	ErrConflict = errors.New("conflict")
)

var (
	// ErrPaperNotFound covers missing, inactive and unpublished papers.
	ErrPaperNotFound = fmt.Errorf("paper %w", ErrNotFound)
	// ErrAttemptNotFound indicates the attempt id is unknown.
	ErrAttemptNotFound = fmt.Errorf("attempt %w", ErrNotFound)
	// ErrQuestionNotFound indicates the question id is unknown.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrNotAttemptOwner is returned when a student touches another student's attempt.
	ErrNotAttemptOwner = fmt.Errorf("attempt belongs to another student: %w", ErrForbidden)
	// ErrAttemptSubmitted is returned when answering an attempt that is already graded.
	ErrAttemptSubmitted = fmt.Errorf("attempt already submitted: %w", ErrInvalidState)
	// ErrAttemptNotSubmitted is returned when reviewing an attempt that is still open.
	ErrAttemptNotSubmitted = fmt.Errorf("attempt not submitted yet: %w", ErrInvalidState)
	// ErrEmptySelection indicates no answer index was supplied.
	ErrEmptySelection = fmt.Errorf("selection is empty: %w", ErrValidation)
	// ErrSelectionOutOfRange indicates an answer index outside the question's answer list.
	ErrSelectionOutOfRange = fmt.Errorf("selected index out of range: %w", ErrValidation)
	// ErrQuestionNotInPaper indicates the question belongs to a different paper.
	ErrQuestionNotInPaper = fmt.Errorf("question not in this attempt paper: %w", ErrValidation)
	// ErrDuplicateAttempt is returned by stores when (paper, student, attemptNo) already exists.
	ErrDuplicateAttempt = fmt.Errorf("attempt number already taken: %w", ErrConflict)
)

// QuotaExceededError carries enough context for callers to route to the last result.
type QuotaExceededError struct {
	AttemptsAllowed int
	AttemptsUsed    int
	LastAttemptID   string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("attempt limit reached (%d/%d)", e.AttemptsUsed, e.AttemptsAllowed)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// PaymentRequiredError carries the amount the student has to pay before starting.
type PaymentRequiredError struct {
	PaperID string
	Amount  float64
}

func (e *PaymentRequiredError) Error() string {
	return fmt.Sprintf("payment of %.2f required for paper %s", e.Amount, e.PaperID)
}

func (e *PaymentRequiredError) Unwrap() error { return ErrPaymentRequired }

// AttemptInProgressError is returned when a student starts a paper while an
// earlier attempt on it is still open.
type AttemptInProgressError struct {
	AttemptID string
}

func (e *AttemptInProgressError) Error() string {
	return "attempt " + e.AttemptID + " is still in progress"
}

func (e *AttemptInProgressError) Unwrap() error { return ErrInvalidState }
