package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"eldt-progress-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// AnswerKeyCache caches answer keys with TTL to avoid repeated store hits.
// Keys expire so a quiz whose question set changes between saves is picked up
// on the next fill.
type AnswerKeyCache struct {
	loader AnswerKeyLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int64]cachedKey
}

type cachedKey struct {
	key       []domain.KeyEntry
	expiresAt time.Time
}

func NewAnswerKeyCache(loader AnswerKeyLoader, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedKey),
	}
}

func (c *AnswerKeyCache) GetAnswerKey(ctx context.Context, quizID int64) ([]domain.KeyEntry, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.key, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(sfKey(quizID), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.key, nil
		}
		c.mu.RUnlock()

		key, err := c.loader.LoadAnswerKey(ctx, quizID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[quizID] = cachedKey{
			key:       key,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.KeyEntry), nil
}

func sfKey(quizID int64) string {
	return "quiz-" + strconv.FormatInt(quizID, 10)
}

func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
