package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"voting-api/models"
)

// PollCache stores serialized polls under poll:<id>
type PollCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPollCache(client *redis.Client, ttl time.Duration) *PollCache {
	return &PollCache{client: client, ttl: ttl}
}

func pollKey(id string) string {
	return "poll:" + id
}

// GetPoll 从缓存读取投票，未命中返回ErrCacheMiss
func (c *PollCache) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	data, err := c.client.Get(ctx, pollKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache: get poll: %w", err)
	}

	var entry pollEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("cache: decode poll: %w", err)
	}
	return entry.toModel(), nil
}

// SetPoll 写入缓存
func (c *PollCache) SetPoll(ctx context.Context, poll *models.Poll) error {
	data, err := json.Marshal(newPollEntry(poll))
	if err != nil {
		return fmt.Errorf("cache: encode poll: %w", err)
	}
	if err := c.client.Set(ctx, pollKey(poll.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set poll: %w", err)
	}
	return nil
}

// DeletePoll 删除缓存
func (c *PollCache) DeletePoll(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, pollKey(id)).Err(); err != nil {
		return fmt.Errorf("cache: delete poll: %w", err)
	}
	return nil
}

// pollEntry keeps the creator ID, which the API representation hides
type pollEntry struct {
	ID        string          `json:"id"`
	Question  string          `json:"question"`
	Options   []models.Option `json:"options"`
	CreatorID string          `json:"creatorId,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func newPollEntry(poll *models.Poll) pollEntry {
	return pollEntry{
		ID:        poll.ID,
		Question:  poll.Question,
		Options:   poll.Options,
		CreatorID: poll.CreatorID,
		CreatedAt: poll.CreatedAt,
	}
}

func (e pollEntry) toModel() *models.Poll {
	return &models.Poll{
		ID:        e.ID,
		Question:  e.Question,
		Options:   e.Options,
		CreatorID: e.CreatorID,
		CreatedAt: e.CreatedAt,
	}
}
