package domain

import "time"

// AttemptUsage describes quota consumption of a student on one paper.
type AttemptUsage struct {
	PaperID                string        `json:"paperId"`
	AttemptsAllowed        int           `json:"attemptsAllowed"`
	AttemptsUsed           int           `json:"attemptsUsed"`
	AttemptsLeft           int           `json:"attemptsLeft"`
	LastSubmittedAttemptID string        `json:"lastAttemptId,omitempty"`
	LastAttemptNo          int           `json:"lastAttemptNo,omitempty"`
	LastStatus             AttemptStatus `json:"lastStatus,omitempty"`
}

// AttemptSummary is the quota view from the perspective of one attempt.
type AttemptSummary struct {
	PaperID         string `json:"paperId"`
	AttemptsAllowed int    `json:"attemptsAllowed"`
	AttemptsUsed    int    `json:"attemptsUsed"`
	AttemptsLeft    int    `json:"attemptsLeft"`
	AttemptNo       int    `json:"attemptNo"`
	NextAttemptNo   int    `json:"nextAttemptNo"`
}

// StartedAttempt is returned by a successful start.
type StartedAttempt struct {
	Attempt         Attempt `json:"attempt"`
	TimeMinutes     int     `json:"timeMinutes"`
	AttemptsAllowed int     `json:"attemptsAllowed"`
	AttemptsUsed    int     `json:"attemptsUsed"`
	AttemptsLeft    int     `json:"attemptsLeft"`
}

// AttemptQuestion is a question as shown while the attempt is open. It never
// carries the correct answers.
type AttemptQuestion struct {
	ID                  string   `json:"id"`
	Number              int      `json:"number"`
	LessonName          string   `json:"lessonName"`
	Prompt              string   `json:"prompt"`
	Answers             []string `json:"answers"`
	ImageURL            string   `json:"imageUrl"`
	ExplanationText     string   `json:"explanationText"`
	ExplanationVideoURL string   `json:"explanationVideoUrl"`
	SelectedIndexes     []int    `json:"selectedIndexes"`
}

// AttemptSheet is the open-attempt question sheet.
type AttemptSheet struct {
	AttemptID   string            `json:"attemptId"`
	Status      AttemptStatus     `json:"status"`
	AttemptNo   int               `json:"attemptNo"`
	PaperID     string            `json:"paperId"`
	TimeMinutes int               `json:"timeMinutes"`
	Questions   []AttemptQuestion `json:"questions"`
}

// ReviewItem is one answered question in the post-submit review.
type ReviewItem struct {
	QuestionID          string   `json:"questionId"`
	QuestionNumber      int      `json:"questionNumber"`
	Prompt              string   `json:"prompt"`
	Answers             []string `json:"answers"`
	SelectedIndexes     []int    `json:"selectedIndexes"`
	SelectedAnswers     []string `json:"selectedAnswers"`
	CorrectAnswers      []string `json:"correctAnswers"`
	IsCorrect           bool     `json:"isCorrect"`
	Point               float64  `json:"point"`
	EarnedPoints        float64  `json:"earnedPoints"`
	LessonName          string   `json:"lessonName"`
	ExplanationText     string   `json:"explanationText"`
	ExplanationVideoURL string   `json:"explanationVideoUrl"`
	ImageURL            string   `json:"imageUrl"`
}

type ReviewMeta struct {
	PaperID         string `json:"paperId"`
	AttemptID       string `json:"attemptId"`
	AttemptNo       int    `json:"attemptNo"`
	AttemptsAllowed int    `json:"attemptsAllowed"`
	AttemptsLeft    int    `json:"attemptsLeft"`
	NextAttemptNo   int    `json:"nextAttemptNo"`
}

type ReviewResult struct {
	TotalQuestions int `json:"totalQuestions"`
	CorrectCount   int `json:"correctCount"`
	WrongCount     int `json:"wrongCount"`
	Percentage     int `json:"percentage"`
}

// Review is the per-question breakdown, wrong answers first.
type Review struct {
	Meta         ReviewMeta   `json:"meta"`
	Result       ReviewResult `json:"result"`
	WrongFirst   []ReviewItem `json:"wrongFirst"`
	CorrectAfter []ReviewItem `json:"correctAfter"`
}

// CompletedPaper is the best attempt of a student on one paper.
type CompletedPaper struct {
	PaperID        string      `json:"paperId"`
	PaperTitle     string      `json:"paperTitle"`
	PaperType      string      `json:"paperType"`
	PaymentType    PaymentType `json:"paymentType"`
	TotalQuestions int         `json:"totalQuestions"`
	Correct        int         `json:"correct"`
	Percentage     int         `json:"percentage"`
	Coins          float64     `json:"coins"`
	AttemptID      string      `json:"attemptId"`
	AttemptNo      int         `json:"attemptNo"`
	CompletedAt    time.Time   `json:"completedAt"`
}

// Stats are the coin totals of a student.
type Stats struct {
	TotalCoins         float64 `json:"totalCoins"`
	TotalFinishedExams int     `json:"totalFinishedExams"`
}

type ProgressMeta struct {
	CompletedCountAll int     `json:"completedCountAll"`
	TotalAvailableAll int     `json:"totalAvailableAll"`
	CoinsPoints       float64 `json:"coinsPoints"`
	MaxCoinsPossible  float64 `json:"maxCoinsPossible"`
	PointsRatio       float64 `json:"pointsRatio"`
	CompletionRatio   float64 `json:"completionRatio"`
	Base              float64 `json:"base"`
	Extra             float64 `json:"extra"`
}

// Progress is the monotonic completion value in [0,1].
type Progress struct {
	Progress float64      `json:"progress"`
	Meta     ProgressMeta `json:"meta"`
}

// Standing is one student's leaderboard row.
type Standing struct {
	StudentID          string     `json:"studentId"`
	Name               string     `json:"name"`
	TotalCoins         float64    `json:"totalCoins"`
	TotalFinishedExams int        `json:"totalFinishedExams"`
	LastSubmittedAt    *time.Time `json:"lastSubmittedAt,omitempty"`
	Score              string     `json:"score"`
	Rank               int        `json:"rank"`
}

// Leaderboard is the top of the ranking plus the requester's own row.
type Leaderboard struct {
	Top []Standing `json:"top"`
	Me  Standing   `json:"me"`
}
