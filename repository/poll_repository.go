package repository

import (
	"context"
	"errors"

	"voting-api/models"
)

var (
	// ErrPollNotFound 投票不存在
	ErrPollNotFound = errors.New("poll not found")
	// ErrOptionNotFound 选项不存在
	ErrOptionNotFound = errors.New("option not found")
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken 用户名已被占用
	ErrUsernameTaken = errors.New("username already taken")
)

// PollRepository 定义投票数据访问接口
type PollRepository interface {
	// CreatePoll persists poll and fills in the generated poll and option IDs and CreatedAt.
	CreatePoll(ctx context.Context, poll *models.Poll) error
	// ListPolls returns every poll in insertion order.
	ListPolls(ctx context.Context) ([]models.Poll, error)
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	// IncrementVote atomically adds one vote to the option and returns the updated poll.
	IncrementVote(ctx context.Context, pollID, optionID string) (*models.Poll, error)
}

// UserRepository 定义用户数据访问接口
type UserRepository interface {
	// CreateUser persists user and fills in its ID. Returns ErrUsernameTaken on a duplicate username.
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	// FindUsersByIDs returns the users that exist, keyed by ID. Missing IDs are skipped.
	FindUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

// Store bundles both record stores of one backend.
type Store interface {
	Users() UserRepository
	Polls() PollRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
