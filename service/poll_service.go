package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"voting-api/models"
	"voting-api/repository"
)

const minOptions = 2

// Notifier 接收投票更新，用于实时推送
type Notifier interface {
	PublishPoll(poll *models.Poll)
}

// PollService 投票服务
type PollService struct {
	polls    repository.PollRepository
	users    repository.UserRepository
	notifier Notifier
	l        *zap.Logger
}

// NewPollService 创建投票服务，notifier可以为nil
func NewPollService(polls repository.PollRepository, users repository.UserRepository, notifier Notifier, l *zap.Logger) *PollService {
	return &PollService{
		polls:    polls,
		users:    users,
		notifier: notifier,
		l:        l,
	}
}

// CreatePoll 创建投票活动
func (s *PollService) CreatePoll(ctx context.Context, question string, options []string, creatorID string) (*models.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" || len(options) < minOptions {
		return nil, ErrInvalidInput
	}

	poll := &models.Poll{
		Question:  question,
		CreatorID: creatorID,
		Options:   make([]models.Option, len(options)),
	}
	for i, text := range options {
		if strings.TrimSpace(text) == "" {
			return nil, ErrInvalidInput
		}
		poll.Options[i] = models.Option{Text: text}
	}

	if err := s.polls.CreatePoll(ctx, poll); err != nil {
		return nil, fmt.Errorf("service: create poll: %w", err)
	}
	s.l.Info("poll created",
		zap.String("poll_id", poll.ID),
		zap.String("creator_id", creatorID),
		zap.Int("options", len(poll.Options)))

	if err := s.resolveCreators(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

// ListPolls 获取全部投票
func (s *PollService) ListPolls(ctx context.Context) ([]models.Poll, error) {
	polls, err := s.polls.ListPolls(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: list polls: %w", err)
	}

	refs := make([]*models.Poll, len(polls))
	for i := range polls {
		refs[i] = &polls[i]
	}
	if err := s.resolveCreators(ctx, refs...); err != nil {
		return nil, err
	}
	return polls, nil
}

// GetPoll 获取投票详情
func (s *PollService) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	poll, err := s.polls.GetPoll(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPollNotFound) {
			return nil, ErrPollNotFound
		}
		return nil, fmt.Errorf("service: get poll: %w", err)
	}

	if err := s.resolveCreators(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

// Vote 为选项增加一票。
// The same user may vote any number of times; votes are not de-duplicated.
func (s *PollService) Vote(ctx context.Context, pollID, optionID string) (*models.Poll, error) {
	poll, err := s.polls.IncrementVote(ctx, pollID, optionID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPollNotFound):
			return nil, ErrPollNotFound
		case errors.Is(err, repository.ErrOptionNotFound):
			return nil, ErrOptionNotFound
		default:
			return nil, fmt.Errorf("service: vote: %w", err)
		}
	}
	s.l.Debug("vote recorded",
		zap.String("poll_id", pollID),
		zap.String("option_id", optionID),
		zap.Int64("total_votes", poll.TotalVotes()))

	if err := s.resolveCreators(ctx, poll); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.PublishPoll(poll)
	}
	return poll, nil
}

// resolveCreators attaches the creator to each poll. A creator that no longer
// exists leaves CreatedBy nil.
func (s *PollService) resolveCreators(ctx context.Context, polls ...*models.Poll) error {
	seen := make(map[string]struct{})
	ids := make([]string, 0, len(polls))
	for _, poll := range polls {
		if poll.CreatorID == "" {
			continue
		}
		if _, ok := seen[poll.CreatorID]; !ok {
			seen[poll.CreatorID] = struct{}{}
			ids = append(ids, poll.CreatorID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	users, err := s.users.FindUsersByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("service: resolve creators: %w", err)
	}
	for _, poll := range polls {
		if user, ok := users[poll.CreatorID]; ok {
			poll.CreatedBy = &models.Creator{ID: user.ID, Username: user.Username}
		}
	}
	return nil
}
