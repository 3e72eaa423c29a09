package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"voting-api/models"
)

// newTestGormStore opens a file-backed SQLite database private to the test.
func newTestGormStore(t *testing.T) *GormStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, MigrateGorm(db))

	store := NewGormStore(db)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func newPoll(question string, creatorID string, texts ...string) *models.Poll {
	poll := &models.Poll{Question: question, CreatorID: creatorID}
	for _, text := range texts {
		poll.Options = append(poll.Options, models.Option{Text: text})
	}
	return poll
}

func TestGormUserRepository_CreateAndFind(t *testing.T) {
	users := newTestGormStore(t).Users()
	ctx := context.Background()

	user := &models.User{Username: "alice", PasswordHash: "hash"}
	require.NoError(t, users.CreateUser(ctx, user))
	assert.NotEmpty(t, user.ID)

	byName, err := users.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
	assert.Equal(t, "hash", byName.PasswordHash)

	byID, err := users.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = users.FindUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = users.FindUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGormUserRepository_DuplicateUsername(t *testing.T) {
	users := newTestGormStore(t).Users()
	ctx := context.Background()

	require.NoError(t, users.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "h1"}))
	err := users.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "h2"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestGormUserRepository_FindUsersByIDs(t *testing.T) {
	users := newTestGormStore(t).Users()
	ctx := context.Background()

	alice := &models.User{Username: "alice", PasswordHash: "h"}
	bob := &models.User{Username: "bob", PasswordHash: "h"}
	require.NoError(t, users.CreateUser(ctx, alice))
	require.NoError(t, users.CreateUser(ctx, bob))

	found, err := users.FindUsersByIDs(ctx, []string{alice.ID, "ghost", bob.ID})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, "alice", found[alice.ID].Username)
	assert.Equal(t, "bob", found[bob.ID].Username)

	empty, err := users.FindUsersByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGormPollRepository_CreateAndGet(t *testing.T) {
	polls := newTestGormStore(t).Polls()
	ctx := context.Background()

	poll := newPoll("Best editor?", "u1", "vim", "emacs", "nano")
	require.NoError(t, polls.CreatePoll(ctx, poll))

	assert.NotEmpty(t, poll.ID)
	assert.False(t, poll.CreatedAt.IsZero())
	require.Len(t, poll.Options, 3)
	for _, option := range poll.Options {
		assert.NotEmpty(t, option.ID)
		assert.Zero(t, option.Votes)
	}

	fetched, err := polls.GetPoll(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, "Best editor?", fetched.Question)
	assert.Equal(t, "u1", fetched.CreatorID)
	assert.Equal(t, poll.Options, fetched.Options)

	_, err = polls.GetPoll(ctx, "missing")
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestGormPollRepository_ListInInsertionOrder(t *testing.T) {
	polls := newTestGormStore(t).Polls()
	ctx := context.Background()

	empty, err := polls.ListPolls(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, q := range []string{"first", "second", "third"} {
		require.NoError(t, polls.CreatePoll(ctx, newPoll(q, "u1", "a", "b")))
	}

	list, err := polls.ListPolls(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "first", list[0].Question)
	assert.Equal(t, "second", list[1].Question)
	assert.Equal(t, "third", list[2].Question)
	assert.Equal(t, "a", list[0].Options[0].Text)
	assert.Equal(t, "b", list[0].Options[1].Text)
}

func TestGormPollRepository_ListSameTimestamp(t *testing.T) {
	store := newTestGormStore(t)
	polls := store.Polls()
	ctx := context.Background()

	questions := []string{"one", "two", "three", "four", "five"}
	for _, q := range questions {
		require.NoError(t, polls.CreatePoll(ctx, newPoll(q, "u1", "a", "b")))
	}
	same := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.db.Model(&pollRecord{}).Where("1 = 1").Update("created_at", same).Error)

	list, err := polls.ListPolls(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(questions))
	for i, q := range questions {
		assert.Equal(t, q, list[i].Question)
	}
}

func TestGormPollRepository_IncrementVote(t *testing.T) {
	polls := newTestGormStore(t).Polls()
	ctx := context.Background()

	poll := newPoll("Q", "u1", "A", "B")
	require.NoError(t, polls.CreatePoll(ctx, poll))

	updated, err := polls.IncrementVote(ctx, poll.ID, poll.Options[1].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.Options[0].Votes)
	assert.Equal(t, int64(1), updated.Options[1].Votes)

	_, err = polls.IncrementVote(ctx, poll.ID, "unknown-option")
	assert.ErrorIs(t, err, ErrOptionNotFound)

	_, err = polls.IncrementVote(ctx, "unknown-poll", poll.Options[0].ID)
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestGormPollRepository_OptionScopedToPoll(t *testing.T) {
	polls := newTestGormStore(t).Polls()
	ctx := context.Background()

	first := newPoll("first", "u1", "A", "B")
	second := newPoll("second", "u1", "C", "D")
	require.NoError(t, polls.CreatePoll(ctx, first))
	require.NoError(t, polls.CreatePoll(ctx, second))

	_, err := polls.IncrementVote(ctx, first.ID, second.Options[0].ID)
	assert.ErrorIs(t, err, ErrOptionNotFound)

	fetched, err := polls.GetPoll(ctx, second.ID)
	require.NoError(t, err)
	assert.Zero(t, fetched.TotalVotes())
}

func TestGormPollRepository_ConcurrentVotesAreNotLost(t *testing.T) {
	polls := newTestGormStore(t).Polls()
	ctx := context.Background()

	poll := newPoll("Q", "u1", "A", "B")
	require.NoError(t, polls.CreatePoll(ctx, poll))

	const voters = 50
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := polls.IncrementVote(ctx, poll.ID, poll.Options[0].ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	fetched, err := polls.GetPoll(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(voters), fetched.Options[0].Votes)
	assert.Equal(t, int64(0), fetched.Options[1].Votes)
}
