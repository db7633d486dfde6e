package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"paper-attempt-service/internal/domain"
	"paper-attempt-service/internal/grading"
	"paper-attempt-service/internal/metrics"
)

// AttemptService owns the attempt lifecycle: start, answer, submit and the
// per-attempt read views. It is the only writer of attempt state.
type AttemptService struct {
	papers   PaperRepository
	payments PaymentLedger
	attempts AttemptStore
	logger   *zap.Logger
	metrics  *metrics.Metrics
	listener SubmitListener
	now      func() time.Time
	newID    func() string
}

// Option customizes AttemptService.
type Option func(*AttemptService)

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AttemptService) { s.now = now }
}

// WithIDGenerator overrides uuid attempt ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *AttemptService) { s.newID = newID }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AttemptService) { s.metrics = m }
}

// WithSubmitListener registers the component told about finished attempts.
func WithSubmitListener(l SubmitListener) Option {
	return func(s *AttemptService) { s.listener = l }
}

func NewAttemptService(papers PaperRepository, payments PaymentLedger, attempts AttemptStore, logger *zap.Logger, opts ...Option) *AttemptService {
	s := &AttemptService{
		papers:   papers,
		payments: payments,
		attempts: attempts,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartAttempt opens the next attempt of a student on a paper.
func (s *AttemptService) StartAttempt(ctx context.Context, studentID, paperID string) (domain.StartedAttempt, error) {
	content, err := s.papers.GetPaper(ctx, paperID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.metrics.StartRejected("not_found")
			return domain.StartedAttempt{}, domain.ErrPaperNotFound
		}
		return domain.StartedAttempt{}, fmt.Errorf("load paper: %w", err)
	}
	paper := content.Paper
	if !paper.Available() {
		s.metrics.StartRejected("not_found")
		return domain.StartedAttempt{}, domain.ErrPaperNotFound
	}

	if paper.PaymentType == domain.PaymentPaid {
		paid, err := s.payments.HasPaid(ctx, studentID, paperID)
		if err != nil {
			return domain.StartedAttempt{}, fmt.Errorf("check payment: %w", err)
		}
		if !paid {
			s.metrics.StartRejected("payment_required")
			s.logger.Debug("start refused: unpaid paper",
				zap.String("student_id", studentID), zap.String("paper_id", paperID))
			return domain.StartedAttempt{}, &domain.PaymentRequiredError{PaperID: paperID, Amount: paper.Amount}
		}
	}

	existing, err := s.attempts.ListAttempts(ctx, studentID, paperID)
	if err != nil {
		return domain.StartedAttempt{}, fmt.Errorf("list attempts: %w", err)
	}
	allowed := attemptsAllowed(paper)
	used := len(existing)
	if used >= allowed {
		quota := &domain.QuotaExceededError{AttemptsAllowed: allowed, AttemptsUsed: used}
		if used > 0 {
			quota.LastAttemptID = existing[0].ID
		}
		s.metrics.StartRejected("quota_exceeded")
		s.logger.Debug("start refused: quota exhausted",
			zap.String("student_id", studentID), zap.String("paper_id", paperID), zap.Int("used", used))
		return domain.StartedAttempt{}, quota
	}
	for _, a := range existing {
		if a.Status == domain.StatusInProgress {
			s.metrics.StartRejected("in_progress")
			return domain.StartedAttempt{}, &domain.AttemptInProgressError{AttemptID: a.ID}
		}
	}

	questionCount := paper.QuestionCount
	if questionCount == 0 {
		questionCount = len(content.Questions)
	}
	attempt := domain.Attempt{
		ID:                 s.newID(),
		PaperID:            paperID,
		StudentID:          studentID,
		AttemptNo:          used + 1,
		Status:             domain.StatusInProgress,
		PaymentType:        paper.PaymentType,
		QuestionCount:      questionCount,
		AnswersPerQuestion: paper.AnswersPerQuestion,
		StartedAt:          s.now().UTC(),
	}
	if err := s.attempts.CreateAttempt(ctx, attempt); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.metrics.StartRejected("conflict")
			return domain.StartedAttempt{}, err
		}
		return domain.StartedAttempt{}, fmt.Errorf("create attempt: %w", err)
	}

	s.metrics.AttemptStarted(string(paper.PaymentType))
	s.logger.Info("attempt started",
		zap.String("attempt_id", attempt.ID),
		zap.String("student_id", studentID),
		zap.String("paper_id", paperID),
		zap.Int("attempt_no", attempt.AttemptNo))

	return domain.StartedAttempt{
		Attempt:         attempt,
		TimeMinutes:     paper.TimeMinutes,
		AttemptsAllowed: allowed,
		AttemptsUsed:    used + 1,
		AttemptsLeft:    allowed - (used + 1),
	}, nil
}

// SaveAnswer records (or replaces) the selection for one question. Grading
// waits for submit so the student may change answers until then.
func (s *AttemptService) SaveAnswer(ctx context.Context, studentID, attemptID, questionID string, selected []int) (domain.AnswerSubmission, error) {
	attempt, err := s.ownedAttempt(ctx, studentID, attemptID)
	if err != nil {
		return domain.AnswerSubmission{}, err
	}
	if attempt.Submitted() {
		return domain.AnswerSubmission{}, domain.ErrAttemptSubmitted
	}

	q, err := s.papers.GetQuestion(ctx, questionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AnswerSubmission{}, domain.ErrQuestionNotFound
		}
		return domain.AnswerSubmission{}, fmt.Errorf("load question: %w", err)
	}
	if q.PaperID != attempt.PaperID {
		return domain.AnswerSubmission{}, domain.ErrQuestionNotInPaper
	}

	selection := grading.NormalizeSelection(selected)
	if len(selection) == 0 {
		return domain.AnswerSubmission{}, domain.ErrEmptySelection
	}
	for _, idx := range selection {
		if idx < 0 || idx >= len(q.Answers) {
			return domain.AnswerSubmission{}, domain.ErrSelectionOutOfRange
		}
	}

	saved, err := s.attempts.SaveAnswer(ctx, domain.AnswerSubmission{
		AttemptID:       attempt.ID,
		PaperID:         attempt.PaperID,
		QuestionID:      q.ID,
		QuestionNumber:  q.Number,
		SelectedIndexes: selection,
		UpdatedAt:       s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) || errors.Is(err, domain.ErrNotFound) {
			return domain.AnswerSubmission{}, err
		}
		return domain.AnswerSubmission{}, fmt.Errorf("save answer: %w", err)
	}
	return saved, nil
}

// SubmitAttempt grades every question of the paper and closes the attempt.
// Submitting an already submitted attempt returns the stored result.
func (s *AttemptService) SubmitAttempt(ctx context.Context, studentID, attemptID string) (domain.SubmitResult, error) {
	attempt, err := s.ownedAttempt(ctx, studentID, attemptID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if attempt.Submitted() {
		res := attempt.Result()
		res.AlreadySubmitted = true
		return res, nil
	}

	content, err := s.paperContent(ctx, attempt.PaperID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	submittedAt := s.now().UTC()
	grade := func(open domain.Attempt, answers []domain.AnswerSubmission) (domain.Attempt, []domain.AnswerSubmission) {
		// Snapshot payment type, not the live paper's.
		sheet := grading.GradeAttempt(open.PaymentType, content.Questions, answers)
		graded := open
		graded.Status = domain.StatusSubmitted
		graded.SubmittedAt = &submittedAt
		graded.TotalPossiblePoints = sheet.Possible
		graded.TotalPointsEarned = sheet.Earned
		graded.CorrectCount = sheet.Correct
		graded.WrongCount = sheet.Wrong
		graded.Percentage = sheet.Percentage
		return graded, sheet.Answers
	}

	stored, applied, err := s.attempts.CompleteAttempt(ctx, attempt.ID, grade)
	if err != nil {
		s.logger.Error("submit failed", zap.String("attempt_id", attempt.ID), zap.Error(err))
		return domain.SubmitResult{}, fmt.Errorf("complete attempt: %w", err)
	}
	res := stored.Result()
	if !applied {
		res.AlreadySubmitted = true
		return res, nil
	}

	s.metrics.AttemptSubmitted(string(stored.PaymentType))
	s.logger.Info("attempt submitted",
		zap.String("attempt_id", stored.ID),
		zap.String("student_id", stored.StudentID),
		zap.String("paper_id", stored.PaperID),
		zap.Float64("earned", stored.TotalPointsEarned),
		zap.Int("percentage", stored.Percentage))
	if s.listener != nil {
		s.listener.AttemptSubmitted(ctx, stored)
	}
	return res, nil
}

// GetAttemptsForPaper reports quota usage and the last submitted attempt.
func (s *AttemptService) GetAttemptsForPaper(ctx context.Context, studentID, paperID string) (domain.AttemptUsage, error) {
	content, err := s.paperContent(ctx, paperID)
	if err != nil {
		return domain.AttemptUsage{}, err
	}
	attempts, err := s.attempts.ListAttempts(ctx, studentID, paperID)
	if err != nil {
		return domain.AttemptUsage{}, fmt.Errorf("list attempts: %w", err)
	}

	allowed := attemptsAllowed(content.Paper)
	usage := domain.AttemptUsage{
		PaperID:         paperID,
		AttemptsAllowed: allowed,
		AttemptsUsed:    len(attempts),
		AttemptsLeft:    max(allowed-len(attempts), 0),
	}
	for _, a := range attempts {
		if a.Submitted() {
			usage.LastSubmittedAttemptID = a.ID
			usage.LastAttemptNo = a.AttemptNo
			usage.LastStatus = a.Status
			break
		}
	}
	return usage, nil
}

// GetAttemptSummary reports quota usage from the perspective of one attempt.
func (s *AttemptService) GetAttemptSummary(ctx context.Context, studentID, attemptID string) (domain.AttemptSummary, error) {
	attempt, err := s.ownedAttempt(ctx, studentID, attemptID)
	if err != nil {
		return domain.AttemptSummary{}, err
	}
	content, err := s.paperContent(ctx, attempt.PaperID)
	if err != nil {
		return domain.AttemptSummary{}, err
	}
	all, err := s.attempts.ListAttempts(ctx, studentID, attempt.PaperID)
	if err != nil {
		return domain.AttemptSummary{}, fmt.Errorf("list attempts: %w", err)
	}
	allowed := attemptsAllowed(content.Paper)
	return domain.AttemptSummary{
		PaperID:         attempt.PaperID,
		AttemptsAllowed: allowed,
		AttemptsUsed:    len(all),
		AttemptsLeft:    max(allowed-len(all), 0),
		AttemptNo:       attempt.AttemptNo,
		NextAttemptNo:   len(all) + 1,
	}, nil
}

// GetAttemptQuestions returns the question sheet with saved selections and
// without correct answers.
func (s *AttemptService) GetAttemptQuestions(ctx context.Context, studentID, attemptID string) (domain.AttemptSheet, error) {
	attempt, err := s.ownedAttempt(ctx, studentID, attemptID)
	if err != nil {
		return domain.AttemptSheet{}, err
	}
	content, err := s.paperContent(ctx, attempt.PaperID)
	if err != nil {
		return domain.AttemptSheet{}, err
	}
	answers, err := s.attempts.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return domain.AttemptSheet{}, fmt.Errorf("list answers: %w", err)
	}
	selected := make(map[string][]int, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.SelectedIndexes
	}

	sheet := domain.AttemptSheet{
		AttemptID:   attempt.ID,
		Status:      attempt.Status,
		AttemptNo:   attempt.AttemptNo,
		PaperID:     attempt.PaperID,
		TimeMinutes: content.Paper.TimeMinutes,
		Questions:   make([]domain.AttemptQuestion, 0, len(content.Questions)),
	}
	for _, q := range sortedQuestions(content.Questions) {
		sheet.Questions = append(sheet.Questions, domain.AttemptQuestion{
			ID:                  q.ID,
			Number:              q.Number,
			LessonName:          q.LessonName,
			Prompt:              q.Prompt,
			Answers:             q.Answers,
			ImageURL:            q.ImageURL,
			ExplanationText:     q.ExplanationText,
			ExplanationVideoURL: q.ExplanationVideoURL,
			SelectedIndexes:     selected[q.ID],
		})
	}
	return sheet, nil
}

// GetReview returns the answered questions of a submitted attempt, wrong ones first.
func (s *AttemptService) GetReview(ctx context.Context, studentID, attemptID string) (domain.Review, error) {
	attempt, err := s.ownedAttempt(ctx, studentID, attemptID)
	if err != nil {
		return domain.Review{}, err
	}
	if !attempt.Submitted() {
		return domain.Review{}, domain.ErrAttemptNotSubmitted
	}
	content, err := s.paperContent(ctx, attempt.PaperID)
	if err != nil {
		return domain.Review{}, err
	}
	all, err := s.attempts.ListAttempts(ctx, studentID, attempt.PaperID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("list attempts: %w", err)
	}
	answers, err := s.attempts.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("list answers: %w", err)
	}

	questions := make(map[string]domain.Question, len(content.Questions))
	for _, q := range content.Questions {
		questions[q.ID] = q
	}
	items := make([]domain.ReviewItem, 0, len(answers))
	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok {
			continue
		}
		items = append(items, domain.ReviewItem{
			QuestionID:          q.ID,
			QuestionNumber:      q.Number,
			Prompt:              q.Prompt,
			Answers:             q.Answers,
			SelectedIndexes:     a.SelectedIndexes,
			SelectedAnswers:     answerTexts(q.Answers, a.SelectedIndexes),
			CorrectAnswers:      answerTexts(q.Answers, q.CorrectIndexes),
			IsCorrect:           a.IsCorrect,
			Point:               q.Point,
			EarnedPoints:        a.EarnedPoints,
			LessonName:          q.LessonName,
			ExplanationText:     q.ExplanationText,
			ExplanationVideoURL: q.ExplanationVideoURL,
			ImageURL:            q.ImageURL,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].QuestionNumber < items[j].QuestionNumber })

	allowed := attemptsAllowed(content.Paper)
	review := domain.Review{
		Meta: domain.ReviewMeta{
			PaperID:         attempt.PaperID,
			AttemptID:       attempt.ID,
			AttemptNo:       attempt.AttemptNo,
			AttemptsAllowed: allowed,
			AttemptsLeft:    max(allowed-len(all), 0),
			NextAttemptNo:   len(all) + 1,
		},
		Result: domain.ReviewResult{
			TotalQuestions: attempt.QuestionCount,
			CorrectCount:   attempt.CorrectCount,
			WrongCount:     attempt.WrongCount,
			Percentage:     attempt.Percentage,
		},
		WrongFirst:   []domain.ReviewItem{},
		CorrectAfter: []domain.ReviewItem{},
	}
	for _, it := range items {
		if it.IsCorrect {
			review.CorrectAfter = append(review.CorrectAfter, it)
		} else {
			review.WrongFirst = append(review.WrongFirst, it)
		}
	}
	return review, nil
}

func (s *AttemptService) ownedAttempt(ctx context.Context, studentID, attemptID string) (domain.Attempt, error) {
	attempt, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Attempt{}, domain.ErrAttemptNotFound
		}
		return domain.Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return domain.Attempt{}, domain.ErrNotAttemptOwner
	}
	return attempt, nil
}

func (s *AttemptService) paperContent(ctx context.Context, paperID string) (domain.PaperContent, error) {
	content, err := s.papers.GetPaper(ctx, paperID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.PaperContent{}, domain.ErrPaperNotFound
		}
		return domain.PaperContent{}, fmt.Errorf("load paper: %w", err)
	}
	return content, nil
}

func attemptsAllowed(p domain.Paper) int {
	if p.AttemptsAllowed < 1 {
		return 1
	}
	return p.AttemptsAllowed
}

func sortedQuestions(in []domain.Question) []domain.Question {
	out := append([]domain.Question(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func answerTexts(answers []string, idxs []int) []string {
	out := make([]string, 0, len(idxs))
	for _, i := range grading.NormalizeSelection(idxs) {
		if i >= 0 && i < len(answers) {
			out = append(out, answers[i])
		}
	}
	return out
}
