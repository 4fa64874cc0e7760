package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/shuffle"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// PoolLoader fetches every stored question for a pool key (e.g., the Postgres bank).
type PoolLoader interface {
	LoadPool(ctx context.Context, key domain.PoolKey) ([]domain.RawQuestion, error)
}

// QuestionPool caches question pools in Redis and falls back to a loader on cache miss.
// Pools are stored as JSON: SET quiz:pool:{category}:{difficulty} [...] EX ttl
type QuestionPool struct {
	client *redis.Client
	loader PoolLoader
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionPool(client *redis.Client, loader PoolLoader, ttl time.Duration, logger *zap.Logger) *QuestionPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionPool{
		client: client,
		loader: loader,
		ttl:    ttl,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
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
	cacheKey := p.poolKey(key)

	if pool, ok := p.cached(ctx, cacheKey); ok {
		return pool, nil
	}

	result, err, _ := p.sf.Do(cacheKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if pool, ok := p.cached(ctx, cacheKey); ok {
			return pool, nil
		}

		pool, err := p.loader.LoadPool(ctx, key)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(pool)
		if err != nil {
			return nil, err
		}
		if err := p.client.Set(ctx, cacheKey, data, p.ttlWithJitter()).Err(); err != nil {
			p.logger.Warn("cache question pool failed", zap.String("key", cacheKey), zap.Error(err))
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.RawQuestion), nil
}

func (p *QuestionPool) cached(ctx context.Context, cacheKey string) ([]domain.RawQuestion, bool) {
	data, err := p.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			p.logger.Warn("read question pool failed", zap.String("key", cacheKey), zap.Error(err))
		}
		return nil, false
	}
	var pool []domain.RawQuestion
	if err := json.Unmarshal(data, &pool); err != nil {
		p.logger.Warn("decode question pool failed", zap.String("key", cacheKey), zap.Error(err))
		return nil, false
	}
	return pool, true
}

func (p *QuestionPool) poolKey(key domain.PoolKey) string {
	return "quiz:pool:" + key.String()
}

func (p *QuestionPool) ttlWithJitter() time.Duration {
	if p.ttl <= 0 {
		return 0
	}
	jitterMax := int64(p.ttl) / 10
	p.rndMu.Lock()
	defer p.rndMu.Unlock()
	return p.ttl + time.Duration(p.rnd.Int63n(jitterMax+1))
}
