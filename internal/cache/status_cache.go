package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"slidecoach/internal/model"
)

type SessionStatusCache struct {
	client         *redisv9.Client
	statusTTL      time.Duration
	dirtyMarkerTTL time.Duration
}

func NewSessionStatusCache(client *redisv9.Client, statusTTL, dirtyMarkerTTL time.Duration) *SessionStatusCache {
	if statusTTL <= 0 {
		statusTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &SessionStatusCache{
		client:         client,
		statusTTL:      statusTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *SessionStatusCache) GetStatus(ctx context.Context, token string) (*model.SessionStatus, bool, error) {
	key := c.statusKey(token)
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get status failed: %w", err)
	}

	var status model.SessionStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached status failed: %w", err)
	}
	return &status, true, nil
}

func (c *SessionStatusCache) SetStatus(ctx context.Context, token string, status *model.SessionStatus) error {
	key := c.statusKey(token)
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal status cache failed: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.statusTTL).Err(); err != nil {
		return fmt.Errorf("redis set status failed: %w", err)
	}
	return nil
}

func (c *SessionStatusCache) DeleteStatus(ctx context.Context, token string) error {
	key := c.statusKey(token)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete status failed: %w", err)
	}
	return nil
}

func (c *SessionStatusCache) MarkDirty(ctx context.Context, token string) error {
	key := c.dirtyKey(token)
	if err := c.client.Set(ctx, key, "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *SessionStatusCache) IsDirty(ctx context.Context, token string) (bool, error) {
	key := c.dirtyKey(token)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *SessionStatusCache) statusKey(token string) string {
	return fmt.Sprintf("session:status:%s", token)
}

func (c *SessionStatusCache) dirtyKey(token string) string {
	return fmt.Sprintf("session:status:dirty:%s", token)
}
