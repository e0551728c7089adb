package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskboard-api/models"
)

type backend interface {
	FindByEmail(ctx context.Context, email string) ([]models.Task, error)
	Insert(ctx context.Context, task models.Task) (models.Task, error)
	UpdatePosition(ctx context.Context, email string, id primitive.ObjectID, category string, order float64) (int64, error)
	UpdateContent(ctx context.Context, email string, id primitive.ObjectID, fields models.ContentUpdate) (int64, error)
	BulkUpdateOrders(ctx context.Context, email string, assignments []models.OrderAssignment) error
	Delete(ctx context.Context, email string, id primitive.ObjectID) (int64, error)
}

// Cache wraps a task store with redis-backed caching of per-tenant task
// lists. Every mutation evicts the tenant's entry; a nil redis client
// degrades to plain passthrough.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching store wrapper using the provided redis client
// and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("repositories.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) FindByEmail(ctx context.Context, email string) ([]models.Task, error) {
	if tasks, ok := c.loadFromCache(ctx, email); ok {
		return tasks, nil
	}

	tasks, err := c.base.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	c.store(ctx, email, tasks)
	return tasks, nil
}

func (c *Cache) Insert(ctx context.Context, task models.Task) (models.Task, error) {
	created, err := c.base.Insert(ctx, task)
	if err != nil {
		return models.Task{}, err
	}
	c.evict(ctx, created.Email)
	return created, nil
}

func (c *Cache) UpdatePosition(ctx context.Context, email string, id primitive.ObjectID, category string, order float64) (int64, error) {
	matched, err := c.base.UpdatePosition(ctx, email, id, category, order)
	if err != nil {
		return 0, err
	}
	c.evict(ctx, email)
	return matched, nil
}

func (c *Cache) UpdateContent(ctx context.Context, email string, id primitive.ObjectID, fields models.ContentUpdate) (int64, error) {
	modified, err := c.base.UpdateContent(ctx, email, id, fields)
	if err != nil {
		return 0, err
	}
	c.evict(ctx, email)
	return modified, nil
}

func (c *Cache) BulkUpdateOrders(ctx context.Context, email string, assignments []models.OrderAssignment) error {
	if err := c.base.BulkUpdateOrders(ctx, email, assignments); err != nil {
		return err
	}
	c.evict(ctx, email)
	return nil
}

func (c *Cache) Delete(ctx context.Context, email string, id primitive.ObjectID) (int64, error) {
	deleted, err := c.base.Delete(ctx, email, id)
	if err != nil {
		return 0, err
	}
	c.evict(ctx, email)
	return deleted, nil
}

func (c *Cache) loadFromCache(ctx context.Context, email string) ([]models.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey(email)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, tasksCacheKey(email)).Err()
		}
		return nil, false
	}
	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey(email)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, email string, tasks []models.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, tasksCacheKey(email), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, email string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, tasksCacheKey(email)).Result()
}

func tasksCacheKey(email string) string {
	return "tasks:" + email
}
