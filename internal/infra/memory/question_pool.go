package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/shuffle"

	"golang.org/x/sync/singleflight"
)

// PoolLoader fetches every stored question for a pool key (e.g., the Postgres bank).
type PoolLoader interface {
	LoadPool(ctx context.Context, key domain.PoolKey) ([]domain.RawQuestion, error)
}

// QuestionPool caches question pools with TTL to avoid repeated loader hits
// and serves each batch as a random sample of the pool.
type QuestionPool struct {
	loader PoolLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[domain.PoolKey]cachedPool
}

type cachedPool struct {
	questions []domain.RawQuestion
	expiresAt time.Time
}

// NewQuestionPool builds a pool; a nil rnd seeds from the clock.
func NewQuestionPool(loader PoolLoader, ttl time.Duration, rnd *rand.Rand) *QuestionPool {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &QuestionPool{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rnd,
		cache:  make(map[domain.PoolKey]cachedPool),
	}
}

// FetchQuestions implements app.QuestionSource.
func (p *QuestionPool) FetchQuestions(ctx context.Context, req domain.BatchRequest) ([]domain.RawQuestion, error) {
	key := domain.PoolKeyFor(req)
	pool, err := p.getPool(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	if len(pool) < req.Amount {
		return nil, fmt.Errorf("%w: %w: pool %s has %d of %d", domain.ErrFetchFailed, domain.ErrNotEnoughQuestions, key, len(pool), req.Amount)
	}

	p.rndMu.Lock()
	defer p.rndMu.Unlock()
	return shuffle.Sample(pool, req.Amount, p.rnd), nil
}

func (p *QuestionPool) getPool(ctx context.Context, key domain.PoolKey) ([]domain.RawQuestion, error) {
	now := p.clock()

	p.mu.RLock()
	if entry, ok := p.cache[key]; ok && entry.expiresAt.After(now) {
		p.mu.RUnlock()
		return entry.questions, nil
	}
	p.mu.RUnlock()

	result, err, _ := p.sf.Do(key.String(), func() (interface{}, error) {
		now := p.clock()
		p.mu.RLock()
		if entry, ok := p.cache[key]; ok && entry.expiresAt.After(now) {
			p.mu.RUnlock()
			return entry.questions, nil
		}
		p.mu.RUnlock()

		questions, err := p.loader.LoadPool(ctx, key)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.cache[key] = cachedPool{
			questions: questions,
			expiresAt: now.Add(p.ttlWithJitter()),
		}
		p.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.RawQuestion), nil
}

func (p *QuestionPool) ttlWithJitter() time.Duration {
	if p.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(p.ttl) / 10
	p.rndMu.Lock()
	defer p.rndMu.Unlock()
	return p.ttl + time.Duration(p.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a simple loader backed by an in-memory slice (useful for tests/demos).
// It filters by difficulty; the numeric provider category does not apply to it.
type StaticQuestionLoader struct {
	questions []domain.RawQuestion
}

func NewStaticQuestionLoader(questions []domain.RawQuestion) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadPool(_ context.Context, key domain.PoolKey) ([]domain.RawQuestion, error) {
	if key.Difficulty == "" {
		return l.questions, nil
	}
	out := make([]domain.RawQuestion, 0, len(l.questions))
	for _, q := range l.questions {
		if q.Difficulty == key.Difficulty {
			out = append(out, q)
		}
	}
	return out, nil
}
