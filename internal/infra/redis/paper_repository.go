package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"paper-attempt-service/internal/domain"
)

// CatalogLoader fetches catalog content from a backing store (e.g., Postgres).
type CatalogLoader interface {
	LoadPaper(ctx context.Context, paperID string) (domain.PaperContent, error)
	LoadQuestion(ctx context.Context, questionID string) (domain.Question, error)
	LoadPapers(ctx context.Context) ([]domain.Paper, error)
}

// PaperRepository caches catalog content in Redis as JSON and falls back to a
// loader on cache miss.
//
//	paper:{paperID}:content   PaperContent
//	question:{questionID}     Question
//	papers:published          []Paper
type PaperRepository struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewPaperRepository(client *redis.Client, loader CatalogLoader, ttl time.Duration) *PaperRepository {
	return &PaperRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PaperRepository) GetPaper(ctx context.Context, paperID string) (domain.PaperContent, error) {
	return cached(ctx, r, paperKey(paperID), func() (domain.PaperContent, error) {
		return r.loader.LoadPaper(ctx, paperID)
	})
}

func (r *PaperRepository) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	return cached(ctx, r, questionKey(questionID), func() (domain.Question, error) {
		return r.loader.LoadQuestion(ctx, questionID)
	})
}

func (r *PaperRepository) ListPapers(ctx context.Context) ([]domain.Paper, error) {
	return cached(ctx, r, publishedKey, func() ([]domain.Paper, error) {
		return r.loader.LoadPapers(ctx)
	})
}

const publishedKey = "papers:published"

func paperKey(paperID string) string {
	return "paper:" + paperID + ":content"
}

func questionKey(questionID string) string {
	return "question:" + questionID
}

func cached[T any](ctx context.Context, r *PaperRepository, key string, load func() (T, error)) (T, error) {
	if v, ok := readJSON[T](ctx, r.client, key); ok {
		return v, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if v, ok := readJSON[T](ctx, r.client, key); ok {
			return v, nil
		}

		v, err := load()
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(v); err == nil {
			// best effort: a failed write only costs another load
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func readJSON[T any](ctx context.Context, client *redis.Client, key string) (T, bool) {
	var v T
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

func (r *PaperRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
