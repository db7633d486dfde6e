package grading

import (
	"testing"

	"paper-attempt-service/internal/domain"
)

func TestScore(t *testing.T) {
	multi := domain.Question{ID: "q1", Answers: []string{"a", "b", "c", "d"}, CorrectIndexes: []int{0, 2}, Point: 10}
	single := domain.Question{ID: "q2", Answers: []string{"a", "b", "c"}, CorrectIndexes: []int{1}, Point: 10}
	paidMulti := domain.Question{ID: "q3", Answers: []string{"a", "b", "c"}, CorrectIndexes: []int{0, 1}, Point: 10}

	cases := []struct {
		name     string
		payment  domain.PaymentType
		question domain.Question
		selected []int
		earned   float64
		correct  bool
	}{
		{"free partial", domain.PaymentFree, multi, []int{0}, 5, false},
		{"free full", domain.PaymentFree, multi, []int{0, 2}, 10, true},
		{"free miss", domain.PaymentFree, multi, []int{1}, 0, false},
		{"free extra wrong option keeps credit", domain.PaymentFree, multi, []int{0, 1}, 5, false},
		{"free duplicates ignored", domain.PaymentFree, multi, []int{0, 0, 0}, 5, false},
		{"paid single hit", domain.PaymentPaid, single, []int{1}, 10, true},
		{"paid single miss", domain.PaymentPaid, single, []int{0}, 0, false},
		{"paid multi partial", domain.PaymentPaid, paidMulti, []int{0}, 5, false},
		{"paid multi full is still half", domain.PaymentPaid, paidMulti, []int{0, 1}, 5, true},
		{"practice full", domain.PaymentPractice, multi, []int{0, 2}, 0, true},
		{"practice partial", domain.PaymentPractice, multi, []int{2}, 0, false},
		{"unknown type", domain.PaymentType("voucher"), single, []int{1}, 0, false},
		{"zero point", domain.PaymentFree, domain.Question{CorrectIndexes: []int{0}, Point: 0}, []int{0}, 0, false},
		{"no correct answers", domain.PaymentFree, domain.Question{Point: 5}, []int{0}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.payment, tc.question, tc.selected)
			if got.Earned != tc.earned || got.Correct != tc.correct {
				t.Fatalf("expected (%v,%v), got (%v,%v)", tc.earned, tc.correct, got.Earned, got.Correct)
			}
		})
	}
}

func TestScoreFreeRoundsToTwoDecimals(t *testing.T) {
	q := domain.Question{CorrectIndexes: []int{0, 1, 2}, Point: 10}
	got := Score(domain.PaymentFree, q, []int{0})
	if got.Earned != 3.33 {
		t.Fatalf("expected 3.33, got %v", got.Earned)
	}
}

func TestGradeAttemptCountsOnlyAnsweredQuestions(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", CorrectIndexes: []int{0}, Point: 5},
		{ID: "q2", CorrectIndexes: []int{1}, Point: 5},
		{ID: "q3", CorrectIndexes: []int{2}, Point: 10},
	}
	answers := []domain.AnswerSubmission{
		{QuestionID: "q1", SelectedIndexes: []int{0}},
		{QuestionID: "q2", SelectedIndexes: []int{0}},
	}

	sheet := GradeAttempt(domain.PaymentFree, questions, answers)

	// q3 is unanswered: it widens the denominator but is neither correct nor wrong.
	if sheet.Possible != 20 || sheet.Earned != 5 {
		t.Fatalf("expected 5/20, got %v/%v", sheet.Earned, sheet.Possible)
	}
	if sheet.Correct != 1 || sheet.Wrong != 1 {
		t.Fatalf("expected 1 correct 1 wrong, got %d/%d", sheet.Correct, sheet.Wrong)
	}
	if sheet.Percentage != 25 {
		t.Fatalf("expected 25%%, got %d", sheet.Percentage)
	}
	if len(sheet.Answers) != 2 || !sheet.Answers[0].IsCorrect || sheet.Answers[0].EarnedPoints != 5 {
		t.Fatalf("unexpected graded answers %+v", sheet.Answers)
	}
}

func TestGradeAttemptZeroPossible(t *testing.T) {
	questions := []domain.Question{{ID: "q1", CorrectIndexes: []int{0}, Point: 0}}
	sheet := GradeAttempt(domain.PaymentFree, questions, []domain.AnswerSubmission{{QuestionID: "q1", SelectedIndexes: []int{0}}})
	if sheet.Percentage != 0 || sheet.Possible != 0 {
		t.Fatalf("expected zero percentage, got %+v", sheet)
	}
	if sheet.Wrong != 1 {
		t.Fatalf("zero-point answer should count as wrong, got %+v", sheet)
	}
}

func TestGradeAttemptPercentageRoundsHalfUp(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", CorrectIndexes: []int{0}, Point: 1},
		{ID: "q2", CorrectIndexes: []int{0}, Point: 1},
		{ID: "q3", CorrectIndexes: []int{0}, Point: 6},
	}
	answers := []domain.AnswerSubmission{{QuestionID: "q1", SelectedIndexes: []int{0}}}
	// 1/8 = 12.5%
	if got := GradeAttempt(domain.PaymentFree, questions, answers).Percentage; got != 13 {
		t.Fatalf("expected 13, got %d", got)
	}
}
