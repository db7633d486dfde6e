package grading

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"paper-attempt-service/internal/domain"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 200
)

var (
	coinWeight = decimal.New(1, 15)
	examWeight = decimal.New(1, 12)
)

// CompositeScore folds coins, finished exams and recency into one sortable
// key. Coins dominate exams which dominate recency (epoch seconds).
func CompositeScore(coins float64, exams int, last *time.Time) decimal.Decimal {
	key := decimal.NewFromFloat(coins).Mul(coinWeight).
		Add(decimal.NewFromInt(int64(exams)).Mul(examWeight))
	if last != nil {
		key = key.Add(decimal.NewFromInt(last.Unix()))
	}
	return key
}

type standingKey struct {
	student string
	paper   string
}

// Standings ranks every student with at least one coin-earning best attempt.
// Equal keys share a rank and the next distinct key takes rank+1.
func Standings(attempts []domain.Attempt) []domain.Standing {
	best := make(map[standingKey]domain.Attempt)
	for _, a := range attempts {
		if !Eligible(a) || !a.PaymentType.EarnsCoins() {
			continue
		}
		k := standingKey{student: a.StudentID, paper: a.PaperID}
		if cur, ok := best[k]; !ok || Better(a, cur) {
			best[k] = a
		}
	}

	type totals struct {
		coins decimal.Decimal
		exams int
		last  *time.Time
	}
	perStudent := make(map[string]*totals)
	for k, a := range best {
		t, ok := perStudent[k.student]
		if !ok {
			t = &totals{coins: decimal.Zero}
			perStudent[k.student] = t
		}
		t.coins = t.coins.Add(decimal.NewFromFloat(a.TotalPointsEarned))
		t.exams++
		if t.last == nil || a.SubmittedAt.After(*t.last) {
			submitted := *a.SubmittedAt
			t.last = &submitted
		}
	}

	type keyed struct {
		standing domain.Standing
		key      decimal.Decimal
	}
	rows := make([]keyed, 0, len(perStudent))
	for studentID, t := range perStudent {
		coins := t.coins.Round(2).InexactFloat64()
		key := CompositeScore(coins, t.exams, t.last)
		rows = append(rows, keyed{
			standing: domain.Standing{
				StudentID:          studentID,
				TotalCoins:         coins,
				TotalFinishedExams: t.exams,
				LastSubmittedAt:    t.last,
				Score:              key.String(),
			},
			key: key,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].key.Cmp(rows[j].key); c != 0 {
			return c > 0
		}
		return rows[i].standing.StudentID < rows[j].standing.StudentID
	})

	out := make([]domain.Standing, len(rows))
	rank := 0
	for i, r := range rows {
		if i == 0 || !r.key.Equal(rows[i-1].key) {
			rank++
		}
		r.standing.Rank = rank
		out[i] = r.standing
	}
	return out
}

// ClampLimit bounds a requested leaderboard size to 1..MaxLeaderboardLimit.
// Zero or negative selects the default.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

// TopAndMe slices the ranked standings into a leaderboard for studentID.
// A student without qualifying attempts gets rank 0 and zero totals.
func TopAndMe(standings []domain.Standing, studentID string, limit int) domain.Leaderboard {
	limit = ClampLimit(limit)
	top := standings
	if len(top) > limit {
		top = top[:limit]
	}
	lb := domain.Leaderboard{
		Top: append([]domain.Standing(nil), top...),
		Me:  domain.Standing{StudentID: studentID, Score: "0"},
	}
	for _, s := range standings {
		if s.StudentID == studentID {
			lb.Me = s
			break
		}
	}
	return lb
}
