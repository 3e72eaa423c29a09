package repository

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"voting-api/cache"
	"voting-api/models"
)

// PollCacheRepository 定义投票缓存接口
type PollCacheRepository interface {
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	SetPoll(ctx context.Context, poll *models.Poll) error
	DeletePoll(ctx context.Context, id string) error
}

// Locker runs action while holding the named lock
type Locker interface {
	WithLock(ctx context.Context, name string, action func() error) error
}

// CachedPollRepository 实现带缓存的投票数据仓库
type CachedPollRepository struct {
	// 实际数据库操作实现
	db PollRepository
	// 缓存实现
	cache PollCacheRepository
	locks Locker
	l     *zap.Logger
}

// NewCachedPollRepository 创建带缓存的投票数据仓库
func NewCachedPollRepository(db PollRepository, cache PollCacheRepository, locks Locker, l *zap.Logger) *CachedPollRepository {
	return &CachedPollRepository{
		db:    db,
		cache: cache,
		locks: locks,
		l:     l,
	}
}

// CreatePoll 创建投票并写入缓存
func (r *CachedPollRepository) CreatePoll(ctx context.Context, poll *models.Poll) error {
	if err := r.db.CreatePoll(ctx, poll); err != nil {
		return err
	}
	r.store(ctx, poll)
	return nil
}

// ListPolls always reads the store; list results are not cached
func (r *CachedPollRepository) ListPolls(ctx context.Context) ([]models.Poll, error) {
	return r.db.ListPolls(ctx)
}

// GetPoll 先查缓存，未命中再查数据库
func (r *CachedPollRepository) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	poll, err := r.cache.GetPoll(ctx, id)
	if err == nil {
		return poll, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.l.Warn("poll cache read failed", zap.String("poll_id", id), zap.Error(err))
	}

	poll, err = r.db.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, poll)
	return poll, nil
}

// IncrementVote updates the count and refreshes the cache under a per-poll
// lock, so a slower voter never overwrites the cache with an older count.
func (r *CachedPollRepository) IncrementVote(ctx context.Context, pollID, optionID string) (*models.Poll, error) {
	var updated *models.Poll
	err := r.locks.WithLock(ctx, "poll:"+pollID, func() error {
		poll, err := r.db.IncrementVote(ctx, pollID, optionID)
		if err != nil {
			return err
		}
		updated = poll
		r.store(ctx, poll)
		return nil
	})
	if errors.Is(err, cache.ErrLockNotAcquired) {
		// the count itself is atomic in the store; only cache ordering is lost
		r.l.Warn("vote lock not acquired, invalidating cache", zap.String("poll_id", pollID), zap.Error(err))
		poll, err := r.db.IncrementVote(ctx, pollID, optionID)
		if err != nil {
			return nil, err
		}
		r.invalidate(ctx, pollID)
		return poll, nil
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *CachedPollRepository) store(ctx context.Context, poll *models.Poll) {
	if err := r.cache.SetPoll(ctx, poll); err != nil {
		r.l.Warn("poll cache write failed", zap.String("poll_id", poll.ID), zap.Error(err))
	}
}

func (r *CachedPollRepository) invalidate(ctx context.Context, id string) {
	if err := r.cache.DeletePoll(ctx, id); err != nil {
		r.l.Warn("poll cache delete failed", zap.String("poll_id", id), zap.Error(err))
	}
}
