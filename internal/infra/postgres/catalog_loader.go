package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"paper-attempt-service/internal/domain"
)

// CatalogLoader reads papers and questions from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

const paperColumns = `id, title, COALESCE(paper_type, ''), payment_type, amount::float8, attempts_allowed,
	question_count, answers_per_question, time_minutes, is_active, is_published`

// Optional text columns are coalesced so they scan into plain strings.
const questionColumns = `id, paper_id, question_number, COALESCE(lesson_name, ''), prompt, answers,
	correct_indexes, point, COALESCE(explanation_text, ''), COALESCE(explanation_video_url, ''),
	COALESCE(image_url, '')`

func (l *CatalogLoader) LoadPaper(ctx context.Context, paperID string) (domain.PaperContent, error) {
	row := l.pool.QueryRow(ctx, `SELECT `+paperColumns+` FROM papers WHERE id=$1`, paperID)
	paper, err := scanPaper(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PaperContent{}, domain.ErrPaperNotFound
	}
	if err != nil {
		return domain.PaperContent{}, fmt.Errorf("load paper: %w", err)
	}

	rows, err := l.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE paper_id=$1 ORDER BY question_number`, paperID)
	if err != nil {
		return domain.PaperContent{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	content := domain.PaperContent{Paper: paper}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return domain.PaperContent{}, fmt.Errorf("scan question: %w", err)
		}
		content.Questions = append(content.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.PaperContent{}, fmt.Errorf("load questions: %w", err)
	}
	return content, nil
}

func (l *CatalogLoader) LoadQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	row := l.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, questionID)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}

// LoadPapers returns published, active papers.
func (l *CatalogLoader) LoadPapers(ctx context.Context) ([]domain.Paper, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT `+paperColumns+` FROM papers WHERE is_active AND is_published ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()

	var papers []domain.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

func scanPaper(row pgx.Row) (domain.Paper, error) {
	var (
		p           domain.Paper
		paymentType string
	)
	err := row.Scan(&p.ID, &p.Title, &p.PaperType, &paymentType, &p.Amount, &p.AttemptsAllowed,
		&p.QuestionCount, &p.AnswersPerQuestion, &p.TimeMinutes, &p.IsActive, &p.IsPublished)
	if err != nil {
		return domain.Paper{}, err
	}
	if p.PaymentType, err = domain.ParsePaymentType(paymentType); err != nil {
		return domain.Paper{}, fmt.Errorf("paper %s: %w", p.ID, err)
	}
	return p, nil
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q       domain.Question
		correct []int32
	)
	err := row.Scan(&q.ID, &q.PaperID, &q.Number, &q.LessonName, &q.Prompt, &q.Answers,
		&correct, &q.Point, &q.ExplanationText, &q.ExplanationVideoURL, &q.ImageURL)
	if err != nil {
		return domain.Question{}, err
	}
	q.CorrectIndexes = make([]int, len(correct))
	for i, c := range correct {
		q.CorrectIndexes[i] = int(c)
	}
	return q, nil
}
