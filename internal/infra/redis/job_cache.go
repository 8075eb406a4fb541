package redis

import (
	"context"
	"encoding/json"
	"time"

	"lecture-script-service/internal/domain/model"
)

// JobCache is a short-TTL snapshot cache in front of the jobs table. It
// keeps the polling endpoint cheap under many late-joining clients; the
// TTL bounds how stale a snapshot can get between progress writes.
type JobCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewJobCache(client RedisClient, ttl time.Duration) *JobCache {
	return &JobCache{client: client, ttl: ttl}
}

func (c *JobCache) Store(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "job:"+job.ID, data, c.ttl)
}

func (c *JobCache) Get(ctx context.Context, id string) (*model.Job, error) {
	data, err := c.client.Get(ctx, "job:"+id)
	if err != nil {
		return nil, err
	}
	var job model.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *JobCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, "job:"+id)
}
