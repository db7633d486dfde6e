// Package grading holds the pure scoring and ranking rules shared by every
// read and write path of the attempt service.
package grading

import (
	"sort"

	"github.com/shopspring/decimal"

	"paper-attempt-service/internal/domain"
)

// Outcome is the grade of a single question.
type Outcome struct {
	Earned  float64
	Correct bool
}

// Score grades one question for the given payment type.
//
// Free papers give proportional credit (point * hit / k, 2 dp). Paid papers
// give the full point for a single-correct hit and a flat half point for any
// hit on a multi-correct question. Practice papers never earn points but still
// report full correctness.
func Score(paymentType domain.PaymentType, q domain.Question, selected []int) Outcome {
	correct := uniqueSorted(q.CorrectIndexes)
	k := len(correct)
	if k == 0 || q.Point <= 0 {
		return Outcome{}
	}
	hit := intersect(correct, uniqueSorted(selected))
	if hit == 0 {
		return Outcome{}
	}
	full := hit == k
	point := decimal.NewFromFloat(q.Point)

	switch paymentType {
	case domain.PaymentPractice:
		return Outcome{Earned: 0, Correct: full}
	case domain.PaymentFree:
		earned := point.Mul(decimal.NewFromInt(int64(hit))).
			Div(decimal.NewFromInt(int64(k))).
			Round(2)
		return Outcome{Earned: earned.InexactFloat64(), Correct: full}
	case domain.PaymentPaid:
		if k == 1 {
			return Outcome{Earned: q.Point, Correct: full}
		}
		return Outcome{Earned: point.Div(decimal.NewFromInt(2)).InexactFloat64(), Correct: full}
	default:
		return Outcome{}
	}
}

// Sheet is the aggregate grade of an attempt.
type Sheet struct {
	Earned     float64
	Possible   float64
	Correct    int
	Wrong      int
	Percentage int
	// Answers holds the answered questions with IsCorrect and EarnedPoints set.
	Answers []domain.AnswerSubmission
}

// GradeAttempt scores every question of the paper. Unanswered questions add
// their point to Possible but count as neither correct nor wrong.
func GradeAttempt(paymentType domain.PaymentType, questions []domain.Question, answers []domain.AnswerSubmission) Sheet {
	byQuestion := make(map[string]domain.AnswerSubmission, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	earned := decimal.Zero
	possible := decimal.Zero
	sheet := Sheet{Answers: make([]domain.AnswerSubmission, 0, len(answers))}
	for _, q := range questions {
		possible = possible.Add(decimal.NewFromFloat(q.Point))

		a, ok := byQuestion[q.ID]
		if !ok || len(a.SelectedIndexes) == 0 {
			continue
		}
		out := Score(paymentType, q, a.SelectedIndexes)
		earned = earned.Add(decimal.NewFromFloat(out.Earned))
		if out.Correct {
			sheet.Correct++
		} else {
			sheet.Wrong++
		}
		a.IsCorrect = out.Correct
		a.EarnedPoints = out.Earned
		sheet.Answers = append(sheet.Answers, a)
	}

	sheet.Earned = earned.Round(2).InexactFloat64()
	sheet.Possible = possible.Round(2).InexactFloat64()
	if possible.IsPositive() {
		sheet.Percentage = int(earned.Mul(decimal.NewFromInt(100)).Div(possible).Round(0).IntPart())
	}
	return sheet
}

// NormalizeSelection de-duplicates and sorts selected indexes.
func NormalizeSelection(selected []int) []int {
	return uniqueSorted(selected)
}

func uniqueSorted(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// intersect counts common values of two sorted, de-duplicated slices.
func intersect(a, b []int) int {
	n, i, j := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			n++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return n
}
