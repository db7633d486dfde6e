package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"paper-attempt-service/internal/domain"
)

// CatalogLoader fetches catalog content from a backing store (e.g., Postgres).
type CatalogLoader interface {
	LoadPaper(ctx context.Context, paperID string) (domain.PaperContent, error)
	LoadQuestion(ctx context.Context, questionID string) (domain.Question, error)
	LoadPapers(ctx context.Context) ([]domain.Paper, error)
}

const papersKey = "papers"

// PaperRepository caches catalog reads with TTL to avoid repeated DB hits.
type PaperRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedEntry
}

type cachedEntry struct {
	value     any
	expiresAt time.Time
}

func NewPaperRepository(loader CatalogLoader, ttl time.Duration) *PaperRepository {
	return &PaperRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedEntry),
	}
}

func (r *PaperRepository) GetPaper(ctx context.Context, paperID string) (domain.PaperContent, error) {
	return cached(r, "paper:"+paperID, func() (domain.PaperContent, error) {
		return r.loader.LoadPaper(ctx, paperID)
	})
}

func (r *PaperRepository) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	return cached(r, "question:"+questionID, func() (domain.Question, error) {
		return r.loader.LoadQuestion(ctx, questionID)
	})
}

func (r *PaperRepository) ListPapers(ctx context.Context) ([]domain.Paper, error) {
	return cached(r, papersKey, func() ([]domain.Paper, error) {
		return r.loader.LoadPapers(ctx)
	})
}

func (r *PaperRepository) lookup(key string, now time.Time) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	if !ok || !entry.expiresAt.After(now) {
		return nil, false
	}
	return entry.value, true
}

func cached[T any](r *PaperRepository, key string, load func() (T, error)) (T, error) {
	if v, ok := r.lookup(key, r.clock()); ok {
		return v.(T), nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		if v, ok := r.lookup(key, now); ok {
			return v, nil
		}

		v, err := load()
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[key] = cachedEntry{value: v, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func (r *PaperRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCatalog is a loader backed by an in-memory map (useful for tests/demos).
type StaticCatalog struct {
	papers map[string]domain.PaperContent
}

func NewStaticCatalog(contents ...domain.PaperContent) *StaticCatalog {
	c := &StaticCatalog{papers: make(map[string]domain.PaperContent, len(contents))}
	for _, content := range contents {
		questions := append([]domain.Question(nil), content.Questions...)
		sort.SliceStable(questions, func(i, j int) bool { return questions[i].Number < questions[j].Number })
		for i := range questions {
			questions[i].PaperID = content.Paper.ID
		}
		content.Questions = questions
		c.papers[content.Paper.ID] = content
	}
	return c
}

func (c *StaticCatalog) LoadPaper(_ context.Context, paperID string) (domain.PaperContent, error) {
	if content, ok := c.papers[paperID]; ok {
		return content, nil
	}
	return domain.PaperContent{}, domain.ErrPaperNotFound
}

func (c *StaticCatalog) LoadQuestion(_ context.Context, questionID string) (domain.Question, error) {
	for _, content := range c.papers {
		if q, ok := content.Question(questionID); ok {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

// LoadPapers returns the available papers ordered by id.
func (c *StaticCatalog) LoadPapers(_ context.Context) ([]domain.Paper, error) {
	out := make([]domain.Paper, 0, len(c.papers))
	for _, content := range c.papers {
		if content.Paper.Available() {
			out = append(out, content.Paper)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
