package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"paper-attempt-service/internal/domain"
)

type attemptRow struct {
	bun.BaseModel `bun:"table:paper_attempts,alias:pa"`

	ID                  string     `bun:"id,pk"`
	PaperID             string     `bun:"paper_id,notnull"`
	StudentID           string     `bun:"student_id,notnull"`
	AttemptNo           int        `bun:"attempt_no,notnull"`
	Status              string     `bun:"status,notnull"`
	PaymentType         string     `bun:"payment_type,notnull"`
	QuestionCount       int        `bun:"question_count,notnull"`
	AnswersPerQuestion  int        `bun:"answers_per_question,notnull"`
	TotalPossiblePoints float64    `bun:"total_possible_points,notnull"`
	TotalPointsEarned   float64    `bun:"total_points_earned,notnull"`
	CorrectCount        int        `bun:"correct_count,notnull"`
	WrongCount          int        `bun:"wrong_count,notnull"`
	Percentage          int        `bun:"percentage,notnull"`
	StartedAt           time.Time  `bun:"started_at,notnull"`
	SubmittedAt         *time.Time `bun:"submitted_at"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:attempt_answers,alias:aa"`

	AttemptID       string    `bun:"attempt_id,pk"`
	QuestionID      string    `bun:"question_id,pk"`
	PaperID         string    `bun:"paper_id,notnull"`
	QuestionNumber  int       `bun:"question_number,notnull"`
	SelectedIndexes []int     `bun:"selected_indexes,array"`
	IsCorrect       bool      `bun:"is_correct,notnull"`
	EarnedPoints    float64   `bun:"earned_points,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`
}

// AttemptStore persists attempts and answers through bun.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) CreateAttempt(ctx context.Context, attempt domain.Attempt) error {
	row := toAttemptRow(attempt)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateAttempt
		}
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	return getAttempt(ctx, s.db, attemptID, false)
}

func (s *AttemptStore) ListAttempts(ctx context.Context, studentID, paperID string) ([]domain.Attempt, error) {
	return s.listAttempts(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("pa.student_id = ?", studentID).Where("pa.paper_id = ?", paperID)
	})
}

func (s *AttemptStore) ListStudentAttempts(ctx context.Context, studentID string) ([]domain.Attempt, error) {
	return s.listAttempts(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("pa.student_id = ?", studentID)
	})
}

func (s *AttemptStore) ListSubmittedAttempts(ctx context.Context) ([]domain.Attempt, error) {
	return s.listAttempts(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("pa.status = ?", string(domain.StatusSubmitted))
	})
}

func (s *AttemptStore) listAttempts(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]domain.Attempt, error) {
	var rows []attemptRow
	q := filter(s.db.NewSelect().Model(&rows)).OrderExpr("pa.attempt_no DESC, pa.id")
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select attempts: %w", err)
	}
	out := make([]domain.Attempt, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// SaveAnswer locks the attempt row so an answer never lands after submit.
func (s *AttemptStore) SaveAnswer(ctx context.Context, answer domain.AnswerSubmission) (domain.AnswerSubmission, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		attempt, err := getAttempt(ctx, tx, answer.AttemptID, true)
		if err != nil {
			return err
		}
		if attempt.Submitted() {
			return domain.ErrAttemptSubmitted
		}
		row := toAnswerRow(answer)
		_, err = tx.NewInsert().Model(&row).
			On("CONFLICT (attempt_id, question_id) DO UPDATE").
			Set("selected_indexes = EXCLUDED.selected_indexes").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert answer: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.AnswerSubmission{}, err
	}
	return answer, nil
}

func (s *AttemptStore) ListAnswers(ctx context.Context, attemptID string) ([]domain.AnswerSubmission, error) {
	return listAnswers(ctx, s.db, attemptID)
}

// CompleteAttempt locks the attempt row, grades the answers visible under
// that lock and writes the result in the same transaction. A SaveAnswer that
// raced the submit either committed before the lock (and is graded) or sees
// the submitted status.
func (s *AttemptStore) CompleteAttempt(ctx context.Context, attemptID string, grade domain.GradeFunc) (domain.Attempt, bool, error) {
	var (
		stored  domain.Attempt
		applied bool
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := getAttempt(ctx, tx, attemptID, true)
		if err != nil {
			return err
		}
		if current.Submitted() {
			stored = current
			return nil
		}

		answers, err := listAnswers(ctx, tx, attemptID)
		if err != nil {
			return err
		}
		graded, gradedAnswers := grade(current, answers)

		if len(gradedAnswers) > 0 {
			rows := make([]answerRow, len(gradedAnswers))
			for i, a := range gradedAnswers {
				rows[i] = toAnswerRow(a)
			}
			_, err := tx.NewInsert().Model(&rows).
				On("CONFLICT (attempt_id, question_id) DO UPDATE").
				Set("is_correct = EXCLUDED.is_correct").
				Set("earned_points = EXCLUDED.earned_points").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("write graded answers: %w", err)
			}
		}

		row := toAttemptRow(graded)
		res, err := tx.NewUpdate().Model(&row).
			Column("status", "total_possible_points", "total_points_earned",
				"correct_count", "wrong_count", "percentage", "submitted_at").
			WherePK().
			Where("pa.status = ?", string(domain.StatusInProgress)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update attempt: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update attempt: %w", err)
		}
		if n != 1 {
			return fmt.Errorf("update attempt %s: %d rows affected", attemptID, n)
		}
		stored, applied = graded, true
		return nil
	})
	if err != nil {
		return domain.Attempt{}, false, err
	}
	return stored, applied, nil
}

func listAnswers(ctx context.Context, db bun.IDB, attemptID string) ([]domain.AnswerSubmission, error) {
	var rows []answerRow
	err := db.NewSelect().Model(&rows).
		Where("aa.attempt_id = ?", attemptID).
		OrderExpr("aa.question_number").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select answers: %w", err)
	}
	out := make([]domain.AnswerSubmission, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func getAttempt(ctx context.Context, db bun.IDB, attemptID string, forUpdate bool) (domain.Attempt, error) {
	var row attemptRow
	q := db.NewSelect().Model(&row).Where("pa.id = ?", attemptID)
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Attempt{}, domain.ErrAttemptNotFound
		}
		return domain.Attempt{}, fmt.Errorf("select attempt: %w", err)
	}
	return row.toDomain(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

func toAttemptRow(a domain.Attempt) attemptRow {
	return attemptRow{
		ID:                  a.ID,
		PaperID:             a.PaperID,
		StudentID:           a.StudentID,
		AttemptNo:           a.AttemptNo,
		Status:              string(a.Status),
		PaymentType:         string(a.PaymentType),
		QuestionCount:       a.QuestionCount,
		AnswersPerQuestion:  a.AnswersPerQuestion,
		TotalPossiblePoints: a.TotalPossiblePoints,
		TotalPointsEarned:   a.TotalPointsEarned,
		CorrectCount:        a.CorrectCount,
		WrongCount:          a.WrongCount,
		Percentage:          a.Percentage,
		StartedAt:           a.StartedAt,
		SubmittedAt:         a.SubmittedAt,
	}
}

func (r attemptRow) toDomain() domain.Attempt {
	return domain.Attempt{
		ID:                  r.ID,
		PaperID:             r.PaperID,
		StudentID:           r.StudentID,
		AttemptNo:           r.AttemptNo,
		Status:              domain.AttemptStatus(r.Status),
		PaymentType:         domain.PaymentType(r.PaymentType),
		QuestionCount:       r.QuestionCount,
		AnswersPerQuestion:  r.AnswersPerQuestion,
		TotalPossiblePoints: r.TotalPossiblePoints,
		TotalPointsEarned:   r.TotalPointsEarned,
		CorrectCount:        r.CorrectCount,
		WrongCount:          r.WrongCount,
		Percentage:          r.Percentage,
		StartedAt:           r.StartedAt.UTC(),
		SubmittedAt:         utcPtr(r.SubmittedAt),
	}
}

func toAnswerRow(a domain.AnswerSubmission) answerRow {
	return answerRow{
		AttemptID:       a.AttemptID,
		QuestionID:      a.QuestionID,
		PaperID:         a.PaperID,
		QuestionNumber:  a.QuestionNumber,
		SelectedIndexes: a.SelectedIndexes,
		IsCorrect:       a.IsCorrect,
		EarnedPoints:    a.EarnedPoints,
		UpdatedAt:       a.UpdatedAt,
	}
}

func (r answerRow) toDomain() domain.AnswerSubmission {
	return domain.AnswerSubmission{
		AttemptID:       r.AttemptID,
		PaperID:         r.PaperID,
		QuestionID:      r.QuestionID,
		QuestionNumber:  r.QuestionNumber,
		SelectedIndexes: r.SelectedIndexes,
		IsCorrect:       r.IsCorrect,
		EarnedPoints:    r.EarnedPoints,
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
