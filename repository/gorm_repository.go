package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"voting-api/models"
)

type userRecord struct {
	ID           string `gorm:"primaryKey;size:36"`
	Username     string `gorm:"uniqueIndex;size:191;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

func (u *userRecord) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type pollRecord struct {
	ID        string         `gorm:"primaryKey;size:36"`
	Question  string         `gorm:"not null"`
	CreatorID string         `gorm:"size:36;index"`
	CreatedAt time.Time      `gorm:"index"`
	Options   []optionRecord `gorm:"foreignKey:PollID"`
}

func (pollRecord) TableName() string { return "polls" }

// BeforeCreate 使用UUIDv7，同一时间创建的投票按ID保持插入顺序
func (p *pollRecord) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("repository: poll id: %w", err)
		}
		p.ID = id.String()
	}
	return nil
}

// optionRecord keeps its position so options come back in creation order
type optionRecord struct {
	ID       string `gorm:"primaryKey;size:36"`
	PollID   string `gorm:"size:36;not null;index"`
	Position int    `gorm:"not null"`
	Text     string `gorm:"not null"`
	Votes    int64  `gorm:"not null;default:0"`
}

func (optionRecord) TableName() string { return "poll_options" }

func (o *optionRecord) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// MigrateGorm 自动迁移用户和投票表结构
func MigrateGorm(db *gorm.DB) error {
	if err := db.AutoMigrate(&userRecord{}, &pollRecord{}, &optionRecord{}); err != nil {
		return fmt.Errorf("repository: migrate: %w", err)
	}
	return nil
}

// GormStore 基于GORM的关系型存储实现
type GormStore struct {
	db    *gorm.DB
	users *GormUserRepository
	polls *GormPollRepository
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:    db,
		users: &GormUserRepository{db: db},
		polls: &GormPollRepository{db: db},
	}
}

func (s *GormStore) Users() UserRepository { return s.users }

func (s *GormStore) Polls() PollRepository { return s.polls }

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type GormUserRepository struct {
	db *gorm.DB
}

func (r *GormUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	rec := userRecord{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("repository: create user: %w", err)
	}
	user.ID = rec.ID
	return nil
}

func (r *GormUserRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *GormUserRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *GormUserRepository) findOne(ctx context.Context, query string, arg string) (*models.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).Where(query, arg).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: find user: %w", err)
	}
	return rec.toModel(), nil
}

func (r *GormUserRepository) FindUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	users := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	var recs []userRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("repository: find users: %w", err)
	}
	for _, rec := range recs {
		users[rec.ID] = *rec.toModel()
	}
	return users, nil
}

func (u *userRecord) toModel() *models.User {
	return &models.User{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
	}
}

type GormPollRepository struct {
	db *gorm.DB
}

func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *GormPollRepository) CreatePoll(ctx context.Context, poll *models.Poll) error {
	rec := pollRecord{
		Question:  poll.Question,
		CreatorID: poll.CreatorID,
		Options:   make([]optionRecord, len(poll.Options)),
	}
	for i, option := range poll.Options {
		rec.Options[i] = optionRecord{
			Position: i,
			Text:     option.Text,
		}
	}

	// options are saved through the has-many association
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("repository: create poll: %w", err)
	}

	*poll = *rec.toModel()
	return nil
}

func (r *GormPollRepository) ListPolls(ctx context.Context) ([]models.Poll, error) {
	var recs []pollRecord
	err := r.db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Order("created_at ASC, id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("repository: list polls: %w", err)
	}

	polls := make([]models.Poll, len(recs))
	for i := range recs {
		polls[i] = *recs[i].toModel()
	}
	return polls, nil
}

func (r *GormPollRepository) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	var rec pollRecord
	err := r.db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPollNotFound
		}
		return nil, fmt.Errorf("repository: get poll: %w", err)
	}
	return rec.toModel(), nil
}

// IncrementVote 原子增加选项的投票计数
func (r *GormPollRepository) IncrementVote(ctx context.Context, pollID, optionID string) (*models.Poll, error) {
	res := r.db.WithContext(ctx).
		Model(&optionRecord{}).
		Where("id = ? AND poll_id = ?", optionID, pollID).
		UpdateColumn("votes", gorm.Expr("votes + ?", 1))
	if res.Error != nil {
		return nil, fmt.Errorf("repository: increment vote: %w", res.Error)
	}

	poll, err := r.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, ErrOptionNotFound
	}
	return poll, nil
}

func (p *pollRecord) toModel() *models.Poll {
	poll := &models.Poll{
		ID:        p.ID,
		Question:  p.Question,
		CreatorID: p.CreatorID,
		CreatedAt: p.CreatedAt,
		Options:   make([]models.Option, len(p.Options)),
	}
	for i, option := range p.Options {
		poll.Options[i] = models.Option{
			ID:    option.ID,
			Text:  option.Text,
			Votes: option.Votes,
		}
	}
	return poll
}
