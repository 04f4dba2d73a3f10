// Package redis backs the hot read path and the cross-instance realtime bus
// with Redis.
package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"hardword-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the ordered question list from the backing store.
type QuestionLoader interface {
	QuestionsByEvent(ctx context.Context, eventID string) ([]domain.Question, error)
}

// QuestionCache caches each event's question list as JSON under
// hardword:event:{id}:questions and falls back to the loader on a miss.
// Note: cached entries carry canonical answers; they live server-side only
// and are never sent to players.
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) QuestionsByEvent(ctx context.Context, eventID string) ([]domain.Question, error) {
	key := c.key(eventID)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if questions, ok := decodeQuestions(raw); ok {
			return questions, nil
		}
	}

	result, err, _ := c.sf.Do(eventID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			if questions, ok := decodeQuestions(raw); ok {
				return questions, nil
			}
		}

		questions, err := c.loader.QuestionsByEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(questions); err == nil {
			// Cache fill is best-effort; the loader result is authoritative.
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached list after a question edit or a cursor move.
func (c *QuestionCache) Invalidate(eventID string) {
	_ = c.client.Del(context.Background(), c.key(eventID)).Err()
}

func (c *QuestionCache) key(eventID string) string {
	return "hardword:event:" + eventID + ":questions"
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func decodeQuestions(raw []byte) ([]domain.Question, bool) {
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, false
	}
	return questions, true
}
