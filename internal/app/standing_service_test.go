package app_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"paper-attempt-service/internal/app"
	"paper-attempt-service/internal/domain"
	"paper-attempt-service/internal/infra/memory"
)

func singleQuestionPaper(id string, payment domain.PaymentType, point float64) domain.PaperContent {
	return domain.PaperContent{
		Paper: domain.Paper{
			ID: id, Title: "Paper " + id, PaperType: "mcq", PaymentType: payment,
			AttemptsAllowed: 3, QuestionCount: 1, AnswersPerQuestion: 2,
			IsActive: true, IsPublished: true,
		},
		Questions: []domain.Question{
			{ID: id + "-q1", Number: 1, Answers: []string{"yes", "no"}, CorrectIndexes: []int{0}, Point: point},
		},
	}
}

// finish runs a whole attempt, answering the only question with choice.
func (f *fixture) finish(t *testing.T, studentID, paperID string, choice int) domain.SubmitResult {
	t.Helper()
	ctx := context.Background()
	started, err := f.attempts.StartAttempt(ctx, studentID, paperID)
	if err != nil {
		t.Fatalf("start %s: %v", paperID, err)
	}
	if _, err := f.attempts.SaveAnswer(ctx, studentID, started.Attempt.ID, paperID+"-q1", []int{choice}); err != nil {
		t.Fatalf("answer %s: %v", paperID, err)
	}
	res, err := f.attempts.SubmitAttempt(ctx, studentID, started.Attempt.ID)
	if err != nil {
		t.Fatalf("submit %s: %v", paperID, err)
	}
	return res
}

func TestCompletedPapersAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(
		singleQuestionPaper("free", domain.PaymentFree, 10),
		singleQuestionPaper("practice", domain.PaymentPractice, 10),
	)

	f.finish(t, "s1", "free", 1)
	best := f.finish(t, "s1", "free", 0)
	f.finish(t, "s1", "free", 1)
	f.finish(t, "s1", "practice", 0)

	items, err := f.standings.GetCompletedPapers(ctx, "s1")
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected one row per paper, got %+v", items)
	}
	if items[0].PaperID != "practice" || items[0].Coins != 0 || items[0].Correct != 1 {
		t.Fatalf("expected newest practice row without coins first, got %+v", items[0])
	}
	if items[1].AttemptID != best.AttemptID || items[1].Coins != 10 || items[1].AttemptNo != 2 || items[1].PaperTitle != "Paper free" {
		t.Fatalf("expected best free attempt, got %+v", items[1])
	}

	stats, err := f.standings.GetStats(ctx, "s1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalCoins != 10 || stats.TotalFinishedExams != len(items) {
		t.Fatalf("expected 10 coins over %d exams, got %+v", len(items), stats)
	}

	empty, _ := f.standings.GetStats(ctx, "nobody")
	if empty.TotalCoins != 0 || empty.TotalFinishedExams != 0 {
		t.Fatalf("expected zero stats, got %+v", empty)
	}
}

func TestProgressGateBelowTenCompletions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(
		singleQuestionPaper("a", domain.PaymentFree, 10),
		singleQuestionPaper("b", domain.PaymentFree, 10),
		singleQuestionPaper("c", domain.PaymentPractice, 10),
		singleQuestionPaper("d", domain.PaymentFree, 10),
	)
	f.finish(t, "s1", "a", 0)
	f.finish(t, "s1", "b", 1)
	f.finish(t, "s1", "c", 0)

	p, err := f.standings.GetProgress(ctx, "s1")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Progress != 0.09 || p.Meta.Base != 0.09 || p.Meta.Extra != 0 {
		t.Fatalf("expected 0.09 from base only, got %+v", p)
	}
	if p.Meta.CompletedCountAll != 3 || p.Meta.TotalAvailableAll != 4 || p.Meta.CoinsPoints != 10 || p.Meta.MaxCoinsPossible != 30 {
		t.Fatalf("unexpected meta %+v", p.Meta)
	}
	if p.Meta.CompletionRatio != 0.75 || p.Meta.PointsRatio != 0.3333 {
		t.Fatalf("unexpected ratios %+v", p.Meta)
	}
	if mark, _ := f.progress.HighWaterMark(ctx, "s1"); math.Abs(mark-0.09) > 1e-9 {
		t.Fatalf("expected persisted 0.09, got %v", mark)
	}
}

func TestProgressNeverDecreases(t *testing.T) {
	ctx := context.Background()
	f := newFixture(singleQuestionPaper("a", domain.PaymentFree, 10))
	_ = f.progress.RaiseHighWaterMark(ctx, "s1", 0.42)
	f.finish(t, "s1", "a", 0)

	p, err := f.standings.GetProgress(ctx, "s1")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Progress != 0.42 {
		t.Fatalf("expected stored 0.42 to win over raw %v, got %v", p.Meta.Base, p.Progress)
	}
	if mark, _ := f.progress.HighWaterMark(ctx, "s1"); mark != 0.42 {
		t.Fatalf("expected mark to stay 0.42, got %v", mark)
	}
}

func TestLeaderboardRanksAndRefreshes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(
		singleQuestionPaper("a", domain.PaymentFree, 10),
		singleQuestionPaper("b", domain.PaymentFree, 10),
		singleQuestionPaper("p", domain.PaymentPractice, 50),
	)
	f.finish(t, "s1", "a", 0)
	f.finish(t, "s2", "a", 0)
	f.finish(t, "s3", "p", 0)

	lb, err := f.standings.GetLeaderboard(ctx, "s3", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Top) != 2 {
		t.Fatalf("practice-only students must not rank, got %+v", lb.Top)
	}
	// same coins and exams: the later submit ranks first
	if lb.Top[0].StudentID != "s2" || lb.Top[0].Rank != 1 || lb.Top[1].Rank != 2 {
		t.Fatalf("unexpected order %+v", lb.Top)
	}
	if lb.Top[0].Name != "Grace" || lb.Me.Rank != 0 || lb.Me.Name != "Student" {
		t.Fatalf("unexpected names top=%+v me=%+v", lb.Top[0], lb.Me)
	}

	updates, cancel := f.standings.Subscribe()
	defer cancel()

	f.finish(t, "s1", "b", 0)
	select {
	case u := <-updates:
		if u.StudentID != "s1" || u.PaperID != "b" {
			t.Fatalf("unexpected update %+v", u)
		}
	default:
		t.Fatalf("expected a standings update after submit")
	}

	lb, err = f.standings.GetLeaderboard(ctx, "s1", 1)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Top) != 1 || lb.Top[0].StudentID != "s1" || lb.Me.TotalCoins != 20 || lb.Me.TotalFinishedExams != 2 {
		t.Fatalf("expected refreshed standings led by s1, got %+v", lb)
	}
}

// submitDuringRanking lets an attempt finish after the ranking read its input.
type submitDuringRanking struct {
	app.AttemptStore
	once sync.Once
	hook func()
}

func (s *submitDuringRanking) ListSubmittedAttempts(ctx context.Context) ([]domain.Attempt, error) {
	attempts, err := s.AttemptStore.ListSubmittedAttempts(ctx)
	s.once.Do(s.hook)
	return attempts, err
}

func TestStaleRankingIsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewAttemptStore()
	store := &submitDuringRanking{AttemptStore: inner}
	cache := memory.NewStandingsCache(0)
	papers := memory.NewPaperRepository(memory.NewStaticCatalog(), time.Minute)
	svc := app.NewStandingService(papers, store, memory.NewProgressStore(),
		memory.NewStudentDirectory(map[string]string{"s1": "Ada"}), cache, nil, zap.NewNop(), nil)

	at := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	submitted := domain.Attempt{ID: "a1", PaperID: "p1", StudentID: "s1", AttemptNo: 1,
		Status: domain.StatusSubmitted, PaymentType: domain.PaymentFree, SubmittedAt: &at, TotalPointsEarned: 10}
	store.hook = func() {
		if err := inner.CreateAttempt(ctx, submitted); err != nil {
			t.Errorf("create attempt: %v", err)
		}
		svc.AttemptSubmitted(ctx, submitted)
	}

	lb, err := svc.GetLeaderboard(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Top) != 0 {
		t.Fatalf("expected the ranking read before the submit, got %+v", lb.Top)
	}
	if _, ok, _ := cache.Get(ctx); ok {
		t.Fatalf("ranking computed across a submit must not be cached")
	}

	lb, err = svc.GetLeaderboard(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if lb.Me.Rank != 1 || lb.Me.TotalCoins != 10 || lb.Me.Name != "Ada" {
		t.Fatalf("expected fresh standings with s1 first, got %+v", lb.Me)
	}
	if _, ok, _ := cache.Get(ctx); !ok {
		t.Fatalf("expected the fresh ranking to be cached")
	}
}
