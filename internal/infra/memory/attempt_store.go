package memory

import (
	"context"
	"sort"
	"sync"

	"paper-attempt-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore. It
// enforces the same uniqueness rules as the Postgres schema.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
	answers  map[string]map[string]domain.AnswerSubmission
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
		answers:  make(map[string]map[string]domain.AnswerSubmission),
	}
}

func (s *AttemptStore) CreateAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attempts[attempt.ID]; ok {
		return domain.ErrDuplicateAttempt
	}
	for _, a := range s.attempts {
		if a.PaperID != attempt.PaperID || a.StudentID != attempt.StudentID {
			continue
		}
		if a.AttemptNo == attempt.AttemptNo {
			return domain.ErrDuplicateAttempt
		}
		if a.Status == domain.StatusInProgress && attempt.Status == domain.StatusInProgress {
			return domain.ErrDuplicateAttempt
		}
	}
	s.attempts[attempt.ID] = attempt
	return nil
}

func (s *AttemptStore) GetAttempt(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return a, nil
}

func (s *AttemptStore) ListAttempts(_ context.Context, studentID, paperID string) ([]domain.Attempt, error) {
	return s.filter(func(a domain.Attempt) bool {
		return a.StudentID == studentID && a.PaperID == paperID
	}), nil
}

func (s *AttemptStore) ListStudentAttempts(_ context.Context, studentID string) ([]domain.Attempt, error) {
	return s.filter(func(a domain.Attempt) bool { return a.StudentID == studentID }), nil
}

func (s *AttemptStore) ListSubmittedAttempts(_ context.Context) ([]domain.Attempt, error) {
	return s.filter(domain.Attempt.Submitted), nil
}

// filter returns matches ordered by attempt number descending.
func (s *AttemptStore) filter(keep func(domain.Attempt) bool) []domain.Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Attempt, 0)
	for _, a := range s.attempts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AttemptNo != out[j].AttemptNo {
			return out[i].AttemptNo > out[j].AttemptNo
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *AttemptStore) SaveAnswer(_ context.Context, answer domain.AnswerSubmission) (domain.AnswerSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[answer.AttemptID]
	if !ok {
		return domain.AnswerSubmission{}, domain.ErrAttemptNotFound
	}
	if a.Submitted() {
		return domain.AnswerSubmission{}, domain.ErrAttemptSubmitted
	}
	byQuestion, ok := s.answers[answer.AttemptID]
	if !ok {
		byQuestion = make(map[string]domain.AnswerSubmission)
		s.answers[answer.AttemptID] = byQuestion
	}
	answer.SelectedIndexes = append([]int(nil), answer.SelectedIndexes...)
	byQuestion[answer.QuestionID] = answer
	return answer, nil
}

// ListAnswers returns the answers of an attempt ordered by question number.
func (s *AttemptStore) ListAnswers(_ context.Context, attemptID string) ([]domain.AnswerSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AnswerSubmission, 0, len(s.answers[attemptID]))
	for _, a := range s.answers[attemptID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionNumber < out[j].QuestionNumber })
	return out, nil
}

// CompleteAttempt grades under the store lock so no answer can land between
// the read and the write.
func (s *AttemptStore) CompleteAttempt(_ context.Context, attemptID string, grade domain.GradeFunc) (domain.Attempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, false, domain.ErrAttemptNotFound
	}
	if current.Submitted() {
		return current, false, nil
	}

	byQuestion, ok := s.answers[attemptID]
	if !ok {
		byQuestion = make(map[string]domain.AnswerSubmission)
		s.answers[attemptID] = byQuestion
	}
	stored := make([]domain.AnswerSubmission, 0, len(byQuestion))
	for _, a := range byQuestion {
		stored = append(stored, a)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].QuestionNumber < stored[j].QuestionNumber })

	graded, answers := grade(current, stored)
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}
	s.attempts[attemptID] = graded
	return graded, true, nil
}
