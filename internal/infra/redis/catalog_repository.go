package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-live/internal/catalog"
	"trivia-live/internal/domain"
)

// CatalogRepository caches question sets in Redis and falls back to a loader
// on cache miss. Content is stored as: SET catalog:{name} {json} with TTL.
// Question sets are immutable, so the whole set is cached as one value.
type CatalogRepository struct {
	client *redis.Client
	loader catalog.SetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader catalog.SetLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetSet(ctx context.Context, name string) (domain.QuestionSet, error) {
	key := r.setKey(name)

	if raw, err := r.client.Get(ctx, key).Result(); err == nil {
		var set domain.QuestionSet
		if err := json.Unmarshal([]byte(raw), &set); err == nil {
			return set, nil
		}
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Result(); err == nil {
			var set domain.QuestionSet
			if err := json.Unmarshal([]byte(raw), &set); err == nil {
				return set, nil
			}
		}

		set, err := r.loader.LoadSet(ctx, name)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		if data, err := json.Marshal(set); err == nil {
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (r *CatalogRepository) setKey(name string) string {
	return "catalog:" + name
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
