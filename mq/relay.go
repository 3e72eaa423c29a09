package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"voting-api/models"
)

// UpdatesChannel 投票更新的Redis频道
const UpdatesChannel = "poll_updates"

const publishTimeout = 2 * time.Second

// Publisher delivers a poll update to local subscribers
type Publisher interface {
	PublishPoll(poll *models.Poll)
}

// RedisRelay 通过Redis发布订阅在多个实例之间转发投票更新。
// While the subscription is live every update, including those from this
// instance, reaches local subscribers through it. Otherwise updates are
// delivered to local subscribers directly.
type RedisRelay struct {
	client  *redis.Client
	channel string
	local   Publisher
	ready   chan struct{}
	live    atomic.Bool
	l       *zap.Logger
}

func NewRedisRelay(client *redis.Client, local Publisher, l *zap.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: UpdatesChannel,
		local:   local,
		ready:   make(chan struct{}),
		l:       l,
	}
}

// PublishPoll 发布投票更新，订阅未生效或Redis不可用时直接推送给本地订阅者
func (r *RedisRelay) PublishPoll(poll *models.Poll) {
	data, err := json.Marshal(poll)
	if err != nil {
		r.l.Error("failed to encode poll update", zap.String("poll_id", poll.ID), zap.Error(err))
		return
	}

	delivered := false
	if !r.live.Load() {
		// 订阅未建立或已停止
		r.local.PublishPoll(poll)
		delivered = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	receivers, err := r.client.Publish(ctx, r.channel, data).Result()
	if err != nil {
		r.l.Warn("failed to relay poll update, delivering locally",
			zap.String("poll_id", poll.ID), zap.Error(err))
	}
	if !delivered && (err != nil || receivers == 0) {
		r.local.PublishPoll(poll)
	}
}

// Ready is closed once the subscription is confirmed
func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

// Run 订阅更新频道并转发给本地订阅者，直到ctx取消
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("mq: subscribe %s: %w", r.channel, err)
	}
	r.live.Store(true)
	defer r.live.Store(false)
	close(r.ready)
	r.l.Info("relaying poll updates", zap.String("channel", r.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var poll models.Poll
			if err := json.Unmarshal([]byte(msg.Payload), &poll); err != nil {
				r.l.Warn("dropping malformed poll update", zap.Error(err))
				continue
			}
			r.local.PublishPoll(&poll)
		}
	}
}
