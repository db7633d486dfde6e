package grading

import (
	"testing"
	"time"

	"paper-attempt-service/internal/domain"
)

func submitted(id, paper string, points float64, pct int, at time.Time) domain.Attempt {
	return domain.Attempt{
		ID:                id,
		PaperID:           paper,
		StudentID:         "s1",
		Status:            domain.StatusSubmitted,
		PaymentType:       domain.PaymentFree,
		TotalPointsEarned: points,
		Percentage:        pct,
		SubmittedAt:       &at,
	}
}

func TestBestOfPrefersPointsThenPercentageThenRecency(t *testing.T) {
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		attempts []domain.Attempt
		want     string
	}{
		{"more points", []domain.Attempt{
			submitted("a1", "p1", 10, 50, base.Add(time.Hour)),
			submitted("a2", "p1", 12, 40, base),
		}, "a2"},
		{"higher percentage on equal points", []domain.Attempt{
			submitted("a1", "p1", 10, 50, base.Add(time.Hour)),
			submitted("a2", "p1", 10, 60, base),
		}, "a2"},
		{"later submission on full tie", []domain.Attempt{
			submitted("a1", "p1", 10, 50, base),
			submitted("a2", "p1", 10, 50, base.Add(time.Minute)),
		}, "a2"},
		{"order independent", []domain.Attempt{
			submitted("a2", "p1", 10, 50, base.Add(time.Minute)),
			submitted("a1", "p1", 10, 50, base),
		}, "a2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			best, ok := BestOf(tc.attempts)
			if !ok || best.ID != tc.want {
				t.Fatalf("expected %s, got %s (ok=%v)", tc.want, best.ID, ok)
			}
		})
	}
}

func TestBestOfSkipsOpenAttempts(t *testing.T) {
	open := domain.Attempt{ID: "open", PaperID: "p1", Status: domain.StatusInProgress, TotalPointsEarned: 100}
	noTime := domain.Attempt{ID: "no-time", PaperID: "p1", Status: domain.StatusSubmitted, TotalPointsEarned: 100}
	if _, ok := BestOf([]domain.Attempt{open, noTime}); ok {
		t.Fatalf("expected no eligible attempt")
	}

	done := submitted("done", "p1", 1, 10, time.Now())
	best, ok := BestOf([]domain.Attempt{open, done, noTime})
	if !ok || best.ID != "done" {
		t.Fatalf("expected done, got %+v", best)
	}
}

func TestBestPerPaper(t *testing.T) {
	now := time.Now()
	best := BestPerPaper([]domain.Attempt{
		submitted("a1", "p1", 3, 30, now),
		submitted("a2", "p1", 5, 50, now),
		submitted("b1", "p2", 1, 10, now),
		{ID: "c1", PaperID: "p3", Status: domain.StatusInProgress},
	})
	if len(best) != 2 {
		t.Fatalf("expected 2 papers, got %d", len(best))
	}
	if best["p1"].ID != "a2" || best["p2"].ID != "b1" {
		t.Fatalf("unexpected best map %+v", best)
	}
}
