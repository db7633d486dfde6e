package app

import (
	"context"

	"paper-attempt-service/internal/domain"
)

// PaperRepository reads catalog content (from cache/backing store).
type PaperRepository interface {
	// GetPaper returns the paper with its questions regardless of availability.
	GetPaper(ctx context.Context, paperID string) (domain.PaperContent, error)
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
	// ListPapers returns the published, active papers.
	ListPapers(ctx context.Context) ([]domain.Paper, error)
}

// PaymentLedger answers whether a student paid for a paper.
type PaymentLedger interface {
	HasPaid(ctx context.Context, studentID, paperID string) (bool, error)
}

// AttemptStore persists attempts and their answers.
type AttemptStore interface {
	// CreateAttempt fails with domain.ErrConflict when the attempt number or
	// the open-attempt slot for (paper, student) is already taken.
	CreateAttempt(ctx context.Context, attempt domain.Attempt) error
	GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error)
	// ListAttempts returns a student's attempts on one paper, newest attempt number first.
	ListAttempts(ctx context.Context, studentID, paperID string) ([]domain.Attempt, error)
	ListStudentAttempts(ctx context.Context, studentID string) ([]domain.Attempt, error)
	ListSubmittedAttempts(ctx context.Context) ([]domain.Attempt, error)
	// SaveAnswer upserts by (attempt, question) and fails with
	// domain.ErrAttemptSubmitted if the attempt is no longer open.
	SaveAnswer(ctx context.Context, answer domain.AnswerSubmission) (domain.AnswerSubmission, error)
	ListAnswers(ctx context.Context, attemptID string) ([]domain.AnswerSubmission, error)
	// CompleteAttempt locks the attempt, grades the answers stored at that
	// moment and writes the result atomically. When another submit won, it
	// returns the stored attempt and applied=false without calling grade.
	CompleteAttempt(ctx context.Context, attemptID string, grade domain.GradeFunc) (stored domain.Attempt, applied bool, err error)
}

// ProgressStore keeps the per-student progress high-water mark.
type ProgressStore interface {
	HighWaterMark(ctx context.Context, studentID string) (float64, error)
	// RaiseHighWaterMark stores value only if it exceeds the current mark.
	RaiseHighWaterMark(ctx context.Context, studentID string, value float64) error
}

// StudentDirectory resolves display names for leaderboard rows.
type StudentDirectory interface {
	Names(ctx context.Context, studentIDs []string) (map[string]string, error)
}

// StandingsCache holds the last computed ranking of all students.
type StandingsCache interface {
	Get(ctx context.Context) ([]domain.Standing, bool, error)
	Set(ctx context.Context, standings []domain.Standing) error
	Invalidate(ctx context.Context) error
}

// SubmitListener is told about every attempt that reached the submitted state.
type SubmitListener interface {
	AttemptSubmitted(ctx context.Context, attempt domain.Attempt)
}
