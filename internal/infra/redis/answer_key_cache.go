package redis

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"eldt-progress-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AnswerKeyLoader fetches a quiz's answer key from a backing store.
type AnswerKeyLoader interface {
	LoadAnswerKey(ctx context.Context, quizID int64) ([]domain.KeyEntry, error)
}

// AnswerKeyCache caches answer keys in Redis (hash per quiz) and falls back
// to a loader on cache miss. Keys are stored as:
// HSET quiz:{quizID}:answers {questionID} {correctLabel}
// The ordinal question order is rebuilt by sorting field IDs ascending, the
// same derivation the relational store uses.
type AnswerKeyCache struct {
	client *redis.Client
	loader AnswerKeyLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewAnswerKeyCache(client *redis.Client, loader AnswerKeyLoader, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AnswerKeyCache) GetAnswerKey(ctx context.Context, quizID int64) ([]domain.KeyEntry, error) {
	cacheKey := c.answersKey(quizID)

	fields, err := c.client.HGetAll(ctx, cacheKey).Result()
	if err == nil && len(fields) > 0 {
		return buildKeyFromCache(fields), nil
	}

	result, err, _ := c.sf.Do(cacheKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := c.client.HGetAll(ctx, cacheKey).Result()
		if err == nil && len(fields) > 0 {
			return buildKeyFromCache(fields), nil
		}

		key, err := c.loader.LoadAnswerKey(ctx, quizID)
		if err != nil {
			return nil, err
		}

		ttl := c.ttlWithJitter()
		pipe := c.client.Pipeline()
		for _, entry := range key {
			pipe.HSet(ctx, cacheKey, strconv.FormatInt(entry.QuestionID, 10), entry.CorrectLabel)
		}
		if ttl > 0 {
			pipe.Expire(ctx, cacheKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.KeyEntry), nil
}

func (c *AnswerKeyCache) answersKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":answers"
}

func buildKeyFromCache(fields map[string]string) []domain.KeyEntry {
	key := make([]domain.KeyEntry, 0, len(fields))
	for field, label := range fields {
		questionID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		key = append(key, domain.KeyEntry{QuestionID: questionID, CorrectLabel: label})
	}
	sort.Slice(key, func(i, j int) bool { return key[i].QuestionID < key[j].QuestionID })
	return key
}

func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
