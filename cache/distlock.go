package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DistributedLockService 分布式锁服务
type DistributedLockService struct {
	rs     *redsync.Redsync
	expiry time.Duration
	l      *zap.Logger
}

// NewLockService 基于已有的Redis客户端创建分布式锁服务
func NewLockService(client *redis.Client, expiry time.Duration, l *zap.Logger) *DistributedLockService {
	pool := goredis.NewPool(client)
	return &DistributedLockService{
		rs:     redsync.New(pool),
		expiry: expiry,
		l:      l,
	}
}

// WithLock 在锁内执行操作
func (s *DistributedLockService) WithLock(ctx context.Context, name string, action func() error) error {
	mutex := s.rs.NewMutex("lock:"+name,
		redsync.WithExpiry(s.expiry),
		redsync.WithTries(32),                       // 最大重试次数
		redsync.WithRetryDelay(25*time.Millisecond), // 重试延迟
		redsync.WithDriftFactor(0.01),               // 时钟漂移因子
	)

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLockNotAcquired, name, err)
	}

	// 确保解锁
	defer func() {
		if _, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil {
			s.l.Warn("failed to release lock", zap.String("lock", name), zap.Error(err))
		}
	}()

	return action()
}
