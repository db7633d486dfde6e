package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"paper-attempt-service/internal/domain"
	"paper-attempt-service/internal/grading"
	"paper-attempt-service/internal/metrics"
)

const (
	defaultStudentName = "Student"
	paperFetchLimit    = 8
)

// StandingService serves the read side: completed papers, coin stats,
// progress and the leaderboard. It also reacts to submits by dropping the
// cached ranking and notifying live subscribers.
type StandingService struct {
	papers    PaperRepository
	attempts  AttemptStore
	progress  ProgressStore
	directory StudentDirectory
	cache     StandingsCache
	hub       *Hub
	logger    *zap.Logger
	metrics   *metrics.Metrics

	// generation is bumped by every submit; a ranking computed across a
	// bump is stale and must not be cached.
	cacheMu    sync.Mutex
	generation uint64
}

func NewStandingService(papers PaperRepository, attempts AttemptStore, progress ProgressStore, directory StudentDirectory, cache StandingsCache, hub *Hub, logger *zap.Logger, m *metrics.Metrics) *StandingService {
	if hub == nil {
		hub = NewHub()
	}
	return &StandingService{
		papers:    papers,
		attempts:  attempts,
		progress:  progress,
		directory: directory,
		cache:     cache,
		hub:       hub,
		logger:    logger,
		metrics:   m,
	}
}

// GetCompletedPapers lists the best attempt per paper, newest first.
func (s *StandingService) GetCompletedPapers(ctx context.Context, studentID string) ([]domain.CompletedPaper, error) {
	attempts, err := s.attempts.ListStudentAttempts(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	best := grading.BestPerPaper(attempts)

	out := make([]domain.CompletedPaper, 0, len(best))
	for paperID, a := range best {
		item := domain.CompletedPaper{
			PaperID:        paperID,
			PaymentType:    a.PaymentType,
			TotalQuestions: a.QuestionCount,
			Correct:        a.CorrectCount,
			Percentage:     a.Percentage,
			AttemptID:      a.ID,
			AttemptNo:      a.AttemptNo,
			CompletedAt:    *a.SubmittedAt,
		}
		if a.PaymentType.EarnsCoins() {
			item.Coins = a.TotalPointsEarned
		}
		content, err := s.papers.GetPaper(ctx, paperID)
		switch {
		case err == nil:
			item.PaperTitle = content.Paper.Title
			item.PaperType = content.Paper.PaperType
		case errors.Is(err, domain.ErrNotFound):
			// paper removed from the catalog; keep the result
		default:
			return nil, fmt.Errorf("load paper %s: %w", paperID, err)
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		return out[i].PaperID < out[j].PaperID
	})
	return out, nil
}

// GetStats sums coins over coin-earning best attempts and counts every paper
// with a best attempt, practice included.
func (s *StandingService) GetStats(ctx context.Context, studentID string) (domain.Stats, error) {
	attempts, err := s.attempts.ListStudentAttempts(ctx, studentID)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("list attempts: %w", err)
	}
	stats := domain.Stats{TotalFinishedExams: len(grading.BestPerPaper(attempts))}
	for _, row := range grading.Standings(attempts) {
		if row.StudentID == studentID {
			stats.TotalCoins = row.TotalCoins
		}
	}
	return stats, nil
}

// GetProgress computes the progress curve and never reports less than the
// stored high-water mark.
func (s *StandingService) GetProgress(ctx context.Context, studentID string) (domain.Progress, error) {
	papers, err := s.papers.ListPapers(ctx)
	if err != nil {
		return domain.Progress{}, fmt.Errorf("list papers: %w", err)
	}
	attempts, err := s.attempts.ListStudentAttempts(ctx, studentID)
	if err != nil {
		return domain.Progress{}, fmt.Errorf("list attempts: %w", err)
	}
	maxPoints, err := s.maxPoints(ctx, papers)
	if err != nil {
		return domain.Progress{}, err
	}

	in := grading.ProgressInputFor(grading.BestPerPaper(attempts), papers, maxPoints)
	b := grading.ComputeProgress(in)

	stored, err := s.progress.HighWaterMark(ctx, studentID)
	if err != nil {
		return domain.Progress{}, fmt.Errorf("load progress: %w", err)
	}
	final := grading.Ratchet(stored, b.Raw)
	if final > stored {
		if err := s.progress.RaiseHighWaterMark(ctx, studentID, final); err != nil {
			return domain.Progress{}, fmt.Errorf("store progress: %w", err)
		}
	}

	return domain.Progress{
		Progress: grading.Round4(final),
		Meta: domain.ProgressMeta{
			CompletedCountAll: in.CompletedCountAll,
			TotalAvailableAll: in.TotalAvailableAll,
			CoinsPoints:       in.CoinsPoints,
			MaxCoinsPossible:  in.MaxCoinsPossible,
			PointsRatio:       grading.Round4(b.PointsRatio),
			CompletionRatio:   grading.Round4(b.CompletionRatio),
			Base:              grading.Round4(b.Base),
			Extra:             grading.Round4(b.Extra),
		},
	}, nil
}

// maxPoints loads question totals of coin-earning papers concurrently.
func (s *StandingService) maxPoints(ctx context.Context, papers []domain.Paper) (map[string]float64, error) {
	var (
		mu  sync.Mutex
		out = make(map[string]float64, len(papers))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(paperFetchLimit)
	for _, p := range papers {
		if !p.PaymentType.EarnsCoins() {
			continue
		}
		paperID := p.ID
		g.Go(func() error {
			content, err := s.papers.GetPaper(gctx, paperID)
			if err != nil {
				return fmt.Errorf("load paper %s: %w", paperID, err)
			}
			mu.Lock()
			out[paperID] = content.MaxPoints()
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetLeaderboard returns the top limit rows plus the requester's own row.
func (s *StandingService) GetLeaderboard(ctx context.Context, studentID string, limit int) (domain.Leaderboard, error) {
	standings, err := s.standings(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	lb := grading.TopAndMe(standings, studentID, limit)
	if lb.Me.Rank == 0 {
		names, err := s.directory.Names(ctx, []string{studentID})
		if err != nil {
			s.logger.Warn("resolve student name", zap.String("student_id", studentID), zap.Error(err))
		}
		lb.Me.Name = nameOr(names, studentID)
	}
	return lb, nil
}

func (s *StandingService) standings(ctx context.Context) ([]domain.Standing, error) {
	cached, ok, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn("standings cache read failed", zap.Error(err))
	}
	if ok {
		return cached, nil
	}

	s.cacheMu.Lock()
	generation := s.generation
	s.cacheMu.Unlock()

	start := time.Now()
	attempts, err := s.attempts.ListSubmittedAttempts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submitted attempts: %w", err)
	}
	standings := grading.Standings(attempts)

	ids := make([]string, len(standings))
	for i, row := range standings {
		ids[i] = row.StudentID
	}
	names, err := s.directory.Names(ctx, ids)
	if err != nil {
		s.logger.Warn("resolve student names", zap.Int("students", len(ids)), zap.Error(err))
	}
	for i := range standings {
		standings[i].Name = nameOr(names, standings[i].StudentID)
	}
	s.metrics.ObserveStandings(time.Since(start))

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation != generation {
		s.logger.Debug("standings changed during computation, not caching")
		return standings, nil
	}
	if err := s.cache.Set(ctx, standings); err != nil {
		s.logger.Warn("standings cache write failed", zap.Error(err))
	}
	return standings, nil
}

// AttemptSubmitted drops the cached ranking and wakes live subscribers.
func (s *StandingService) AttemptSubmitted(ctx context.Context, attempt domain.Attempt) {
	s.cacheMu.Lock()
	s.generation++
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Error("standings cache invalidate failed",
			zap.String("attempt_id", attempt.ID), zap.Error(err))
	}
	s.cacheMu.Unlock()
	update := StandingsUpdate{
		AttemptID: attempt.ID,
		StudentID: attempt.StudentID,
		PaperID:   attempt.PaperID,
	}
	if attempt.SubmittedAt != nil {
		update.At = *attempt.SubmittedAt
	}
	s.hub.Publish(update)
}

// Subscribe returns a channel of standings changes. The caller must invoke
// the returned cancel function to avoid leaks.
func (s *StandingService) Subscribe() (<-chan StandingsUpdate, func()) {
	return s.hub.Subscribe()
}

func nameOr(names map[string]string, studentID string) string {
	if n := names[studentID]; n != "" {
		return n
	}
	return defaultStudentName
}
