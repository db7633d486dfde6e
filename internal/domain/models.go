package domain

import (
	"fmt"
	"strings"
	"time"
)

// PaymentType decides the grading formula and whether results earn coins.
type PaymentType string

const (
	PaymentFree     PaymentType = "free"
	PaymentPaid     PaymentType = "paid"
	PaymentPractice PaymentType = "practice"
)

// ParsePaymentType accepts the catalog spelling, including the legacy "practise".
func ParsePaymentType(raw string) (PaymentType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "free":
		return PaymentFree, nil
	case "paid":
		return PaymentPaid, nil
	case "practice", "practise":
		return PaymentPractice, nil
	default:
		return "", fmt.Errorf("unknown payment type %q", raw)
	}
}

// EarnsCoins reports whether attempts of this type feed coins, progress points and the leaderboard.
func (p PaymentType) EarnsCoins() bool {
	return p == PaymentFree || p == PaymentPaid
}

// Paper is the catalog configuration of an assessment.
type Paper struct {
	ID                 string      `json:"id"`
	Title              string      `json:"title"`
	PaperType          string      `json:"paperType"`
	PaymentType        PaymentType `json:"paymentType"`
	Amount             float64     `json:"amount"`
	AttemptsAllowed    int         `json:"attemptsAllowed"`
	QuestionCount      int         `json:"questionCount"`
	AnswersPerQuestion int         `json:"answersPerQuestion"`
	TimeMinutes        int         `json:"timeMinutes"`
	IsActive           bool        `json:"isActive"`
	IsPublished        bool        `json:"isPublished"`
}

// Available reports whether students may start the paper.
func (p Paper) Available() bool {
	return p.IsActive && p.IsPublished
}

// Question is a single- or multi-correct item of a paper.
type Question struct {
	ID                  string   `json:"id"`
	PaperID             string   `json:"paperId"`
	Number              int      `json:"number"`
	LessonName          string   `json:"lessonName,omitempty"`
	Prompt              string   `json:"prompt"`
	Answers             []string `json:"answers"`
	CorrectIndexes      []int    `json:"correctIndexes"`
	Point               float64  `json:"point"`
	ExplanationText     string   `json:"explanationText,omitempty"`
	ExplanationVideoURL string   `json:"explanationVideoUrl,omitempty"`
	ImageURL            string   `json:"imageUrl,omitempty"`
}

// PaperContent bundles a paper with its questions ordered by number.
type PaperContent struct {
	Paper     Paper      `json:"paper"`
	Questions []Question `json:"questions"`
}

// Question looks up a question of the paper by id.
func (c PaperContent) Question(id string) (Question, bool) {
	for _, q := range c.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// MaxPoints sums the point values of all questions.
func (c PaperContent) MaxPoints() float64 {
	total := 0.0
	for _, q := range c.Questions {
		total += q.Point
	}
	return total
}

// AttemptStatus is the lifecycle state of an attempt. Submitted is terminal.
type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "in_progress"
	StatusSubmitted  AttemptStatus = "submitted"
)

// Attempt is one run of a student through a paper. PaymentType, QuestionCount
// and AnswersPerQuestion are copied from the paper at start and never re-read.
type Attempt struct {
	ID                  string        `json:"id"`
	PaperID             string        `json:"paperId"`
	StudentID           string        `json:"studentId"`
	AttemptNo           int           `json:"attemptNo"`
	Status              AttemptStatus `json:"status"`
	PaymentType         PaymentType   `json:"paymentType"`
	QuestionCount       int           `json:"questionCount"`
	AnswersPerQuestion  int           `json:"answersPerQuestion"`
	TotalPossiblePoints float64       `json:"totalPossiblePoints"`
	TotalPointsEarned   float64       `json:"totalPointsEarned"`
	CorrectCount        int           `json:"correctCount"`
	WrongCount          int           `json:"wrongCount"`
	Percentage          int           `json:"percentage"`
	StartedAt           time.Time     `json:"startedAt"`
	SubmittedAt         *time.Time    `json:"submittedAt,omitempty"`
}

// GradeFunc turns an open attempt and the answers stored for it into the
// submitted attempt and its graded answers. Stores call it while holding the
// attempt lock.
type GradeFunc func(open Attempt, answers []AnswerSubmission) (Attempt, []AnswerSubmission)

// Submitted reports whether the attempt reached its terminal state.
func (a Attempt) Submitted() bool {
	return a.Status == StatusSubmitted
}

// Result projects the graded totals of the attempt.
func (a Attempt) Result() SubmitResult {
	return SubmitResult{
		AttemptID:           a.ID,
		Percentage:          a.Percentage,
		TotalPointsEarned:   a.TotalPointsEarned,
		TotalPossiblePoints: a.TotalPossiblePoints,
		CorrectCount:        a.CorrectCount,
		WrongCount:          a.WrongCount,
	}
}

// AnswerSubmission is the student's current selection for one question of an attempt.
type AnswerSubmission struct {
	AttemptID       string    `json:"attemptId"`
	PaperID         string    `json:"paperId"`
	QuestionID      string    `json:"questionId"`
	QuestionNumber  int       `json:"questionNumber"`
	SelectedIndexes []int     `json:"selectedIndexes"`
	IsCorrect       bool      `json:"isCorrect"`
	EarnedPoints    float64   `json:"earnedPoints"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// SubmitResult is the graded outcome returned by submit.
type SubmitResult struct {
	AttemptID           string  `json:"attemptId"`
	Percentage          int     `json:"percentage"`
	TotalPointsEarned   float64 `json:"totalPointsEarned"`
	TotalPossiblePoints float64 `json:"totalPossiblePoints"`
	CorrectCount        int     `json:"correctCount"`
	WrongCount          int     `json:"wrongCount"`
	AlreadySubmitted    bool    `json:"alreadySubmitted"`
}
