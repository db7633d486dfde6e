package grading

import (
	"math"

	"github.com/shopspring/decimal"

	"paper-attempt-service/internal/domain"
)

const (
	progressGate      = 10
	progressBaseShare = 0.30
	progressRestShare = 0.70
)

// ProgressInput is everything the progress curve depends on.
type ProgressInput struct {
	CompletedCountAll int
	TotalAvailableAll int
	CoinsPoints       float64
	MaxCoinsPossible  float64
}

// ProgressBreakdown is the raw progress value with its components.
type ProgressBreakdown struct {
	Raw             float64
	Base            float64
	Extra           float64
	PointsRatio     float64
	CompletionRatio float64
}

// ComputeProgress applies the two-tier curve: the first ten completions fill
// up to 30%, after that completion ratio and points ratio share the other 70%.
func ComputeProgress(in ProgressInput) ProgressBreakdown {
	var b ProgressBreakdown
	if in.TotalAvailableAll > 0 {
		b.CompletionRatio = clamp01(float64(in.CompletedCountAll) / float64(in.TotalAvailableAll))
	}
	if in.MaxCoinsPossible > 0 {
		b.PointsRatio = clamp01(in.CoinsPoints / in.MaxCoinsPossible)
	}

	n := in.CompletedCountAll
	if n > progressGate {
		n = progressGate
	}
	b.Base = progressBaseShare * float64(n) / progressGate
	if in.CompletedCountAll >= progressGate {
		b.Extra = progressRestShare * (0.5*b.CompletionRatio + 0.5*b.PointsRatio)
	}
	b.Raw = clamp01(b.Base + b.Extra)
	return b
}

// ProgressInputFor derives the curve input from a student's best attempts and
// the catalog. maxPoints maps each published paper id to its total question points.
func ProgressInputFor(best map[string]domain.Attempt, papers []domain.Paper, maxPoints map[string]float64) ProgressInput {
	coins := decimal.Zero
	for _, a := range best {
		if a.PaymentType.EarnsCoins() {
			coins = coins.Add(decimal.NewFromFloat(a.TotalPointsEarned))
		}
	}
	possible := decimal.Zero
	for _, p := range papers {
		if p.PaymentType.EarnsCoins() {
			possible = possible.Add(decimal.NewFromFloat(maxPoints[p.ID]))
		}
	}
	return ProgressInput{
		CompletedCountAll: len(best),
		TotalAvailableAll: len(papers),
		CoinsPoints:       coins.Round(2).InexactFloat64(),
		MaxCoinsPossible:  possible.Round(2).InexactFloat64(),
	}
}

// Ratchet returns the value to report given the stored high-water mark.
func Ratchet(stored, raw float64) float64 {
	return math.Max(clamp01(stored), clamp01(raw))
}

// Round4 rounds to four decimal places for presentation.
func Round4(v float64) float64 {
	return decimal.NewFromFloat(v).Round(4).InexactFloat64()
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
