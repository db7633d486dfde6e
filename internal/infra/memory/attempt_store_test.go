package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"paper-attempt-service/internal/domain"
)

func TestAttemptStoreUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()

	first := domain.Attempt{ID: "a1", PaperID: "p1", StudentID: "s1", AttemptNo: 1, Status: domain.StatusInProgress}
	if err := store.CreateAttempt(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	sameNo := domain.Attempt{ID: "a2", PaperID: "p1", StudentID: "s1", AttemptNo: 1, Status: domain.StatusSubmitted}
	if err := store.CreateAttempt(ctx, sameNo); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on attempt number, got %v", err)
	}

	secondOpen := domain.Attempt{ID: "a3", PaperID: "p1", StudentID: "s1", AttemptNo: 2, Status: domain.StatusInProgress}
	if err := store.CreateAttempt(ctx, secondOpen); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on open attempt, got %v", err)
	}

	otherStudent := domain.Attempt{ID: "a4", PaperID: "p1", StudentID: "s2", AttemptNo: 1, Status: domain.StatusInProgress}
	if err := store.CreateAttempt(ctx, otherStudent); err != nil {
		t.Fatalf("other student create: %v", err)
	}
}

func TestAttemptStoreAnswersAndCompletion(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	_ = store.CreateAttempt(ctx, domain.Attempt{ID: "a1", PaperID: "p1", StudentID: "s1", AttemptNo: 1, Status: domain.StatusInProgress})

	_, _ = store.SaveAnswer(ctx, domain.AnswerSubmission{AttemptID: "a1", QuestionID: "q2", QuestionNumber: 2, SelectedIndexes: []int{0}})
	_, _ = store.SaveAnswer(ctx, domain.AnswerSubmission{AttemptID: "a1", QuestionID: "q1", QuestionNumber: 1, SelectedIndexes: []int{1}})
	_, _ = store.SaveAnswer(ctx, domain.AnswerSubmission{AttemptID: "a1", QuestionID: "q1", QuestionNumber: 1, SelectedIndexes: []int{2, 3}})

	answers, err := store.ListAnswers(ctx, "a1")
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(answers) != 2 || answers[0].QuestionID != "q1" || len(answers[0].SelectedIndexes) != 2 {
		t.Fatalf("expected upserted answers ordered by number, got %+v", answers)
	}

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var seen []domain.AnswerSubmission
	grade := func(open domain.Attempt, answers []domain.AnswerSubmission) (domain.Attempt, []domain.AnswerSubmission) {
		seen = answers
		open.Status = domain.StatusSubmitted
		open.SubmittedAt = &at
		open.TotalPointsEarned = 7
		first := answers[0]
		first.IsCorrect, first.EarnedPoints = true, 7
		return open, []domain.AnswerSubmission{first}
	}
	stored, applied, err := store.CompleteAttempt(ctx, "a1", grade)
	if err != nil || !applied || stored.TotalPointsEarned != 7 {
		t.Fatalf("complete: stored=%+v applied=%v err=%v", stored, applied, err)
	}
	if len(seen) != 2 || seen[0].QuestionID != "q1" || seen[1].QuestionID != "q2" {
		t.Fatalf("grade must see every stored answer ordered by number, got %+v", seen)
	}
	answers, _ = store.ListAnswers(ctx, "a1")
	if !answers[0].IsCorrect || answers[0].EarnedPoints != 7 || len(answers[0].SelectedIndexes) != 2 {
		t.Fatalf("expected graded q1 with its selection kept, got %+v", answers[0])
	}

	called := false
	stored, applied, err = store.CompleteAttempt(ctx, "a1", func(open domain.Attempt, answers []domain.AnswerSubmission) (domain.Attempt, []domain.AnswerSubmission) {
		called = true
		open.TotalPointsEarned = 99
		return open, nil
	})
	if err != nil || applied || called || stored.TotalPointsEarned != 7 {
		t.Fatalf("second complete must keep the first result: stored=%+v applied=%v called=%v err=%v", stored, applied, called, err)
	}

	if _, _, err := store.CompleteAttempt(ctx, "missing", grade); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt not found, got %v", err)
	}

	if _, err := store.SaveAnswer(ctx, domain.AnswerSubmission{AttemptID: "a1", QuestionID: "q2"}); !errors.Is(err, domain.ErrAttemptSubmitted) {
		t.Fatalf("expected submitted error, got %v", err)
	}

	submitted, _ := store.ListSubmittedAttempts(ctx)
	if len(submitted) != 1 {
		t.Fatalf("expected one submitted attempt, got %d", len(submitted))
	}
}

func TestAttemptStoreListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	for i, id := range []string{"a1", "a2", "a3"} {
		_ = store.CreateAttempt(ctx, domain.Attempt{ID: id, PaperID: "p1", StudentID: "s1", AttemptNo: i + 1, Status: domain.StatusSubmitted})
	}
	list, _ := store.ListAttempts(ctx, "s1", "p1")
	if len(list) != 3 || list[0].ID != "a3" || list[2].ID != "a1" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if _, err := store.GetAttempt(ctx, "zzz"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt not found, got %v", err)
	}
}
