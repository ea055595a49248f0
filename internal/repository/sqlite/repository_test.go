package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gocomet/parcel-pickup/internal/domain/rating"
	"github.com/gocomet/parcel-pickup/internal/domain/task"
	"github.com/gocomet/parcel-pickup/internal/domain/user"
	"github.com/gocomet/parcel-pickup/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteDB("file::memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, repo *UserRepository, n int) *user.User {
	t.Helper()
	now := time.Now().UTC()
	u := &user.User{
		ID:           uuid.New(),
		Username:     fmt.Sprintf("user%d", n),
		Email:        fmt.Sprintf("user%d@example.com", n),
		Phone:        fmt.Sprintf("137%08d", n),
		PasswordHash: "hash",
		Reputation:   user.DefaultReputation,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

// TestUserRepository tests lookups, uniqueness and password updates
func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()
	u := createUser(t, repo, 1)

	byName, err := repo.GetByLogin(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	byEmail, err := repo.GetByLogin(ctx, "user1@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	mixedCase, err := repo.GetByLogin(ctx, "User1@Example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, mixedCase.ID)

	_, err = repo.GetByLogin(ctx, "missing")
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	exists, err := repo.Exists(ctx, "other", "other@example.com", u.Phone)
	require.NoError(t, err)
	assert.True(t, exists)

	dup := *u
	dup.ID = uuid.New()
	dup.Email = "fresh@example.com"
	dup.Phone = "13799999999"
	assert.ErrorIs(t, repo.Create(ctx, &dup), user.ErrDuplicateUser)

	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "new-hash"))
	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, uuid.New(), "x"), user.ErrUserNotFound)
}

// TestTaskRepository_CompareAndSwap tests version-guarded writes
func TestTaskRepository_CompareAndSwap(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	publisher := createUser(t, users, 1)
	taker := createUser(t, users, 2)
	now := time.Now().UTC()

	tk, err := task.New(publisher.ID, "EMS", "Gate 2", "0001", 12.5, now.Add(time.Hour), now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tk))

	stale, err := repo.GetByID(ctx, tk.ID)
	require.NoError(t, err)

	next := stale.Clone()
	require.NoError(t, task.Apply(next, task.EventAccept, taker.ID, task.RoleCandidate, now))
	require.NoError(t, repo.Save(ctx, next, stale.Version))
	assert.Equal(t, 2, next.Version)

	// a second writer holding the old version loses
	other := stale.Clone()
	require.NoError(t, task.Apply(other, task.EventCancel, publisher.ID, task.RolePublisher, now))
	assert.ErrorIs(t, repo.Save(ctx, other, stale.Version), task.ErrVersionConflict)
	assert.ErrorIs(t, repo.Delete(ctx, tk.ID, stale.Version), task.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusAccepted, stored.Status)
	require.NotNil(t, stored.TakerID)
	assert.Equal(t, taker.ID, *stored.TakerID)
	require.NotNil(t, stored.AcceptedAt)
	assert.WithinDuration(t, now, *stored.AcceptedAt, time.Second)
	assert.Nil(t, stored.CancelledBy)

	require.NoError(t, repo.Delete(ctx, tk.ID, stored.Version))
	_, err = repo.GetByID(ctx, tk.ID)
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
}

// TestTaskRepository_Listings tests filters and ordering
func TestTaskRepository_Listings(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	publisher := createUser(t, users, 1)
	taker := createUser(t, users, 2)
	now := time.Now().UTC()

	mk := func(created time.Time, deadline time.Duration) *task.Task {
		tk, err := task.New(publisher.ID, "JT", "Shop", "9", 3, created.Add(deadline), created)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, tk))
		return tk
	}
	older := mk(now.Add(-2*time.Hour), 4*time.Hour)
	newer := mk(now.Add(-time.Hour), 4*time.Hour)
	expiring := mk(now.Add(-3*time.Hour), 2*time.Hour)
	taken := mk(now.Add(-30*time.Minute), 4*time.Hour)

	version := taken.Version
	require.NoError(t, task.Apply(taken, task.EventAccept, taker.ID, task.RoleCandidate, now))
	require.NoError(t, repo.Save(ctx, taken, version))

	available, err := repo.ListAvailable(ctx, now)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, newer.ID, available[0].ID)
	assert.Equal(t, older.ID, available[1].ID)

	published, err := repo.ListByPublisher(ctx, publisher.ID)
	require.NoError(t, err)
	assert.Len(t, published, 4)
	assert.Equal(t, taken.ID, published[0].ID)
	assert.Equal(t, expiring.ID, published[3].ID)

	accepted, err := repo.ListByTaker(ctx, taker.ID)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, taken.ID, accepted[0].ID)
}

// TestRatingRepository tests transactional create and delete with recompute
func TestRatingRepository(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	tasks := NewTaskRepository(db)
	repo := NewRatingRepository(db)
	ctx := context.Background()
	a := createUser(t, users, 1)
	b := createUser(t, users, 2)
	now := time.Now().UTC()

	tk, err := task.New(a.ID, "SF", "Lab", "1", 5, now.Add(time.Hour), now)
	require.NoError(t, err)
	require.NoError(t, tasks.Create(ctx, tk))

	recompute := rating.Reputation(user.DefaultReputation)

	r1, err := rating.New(a.ID, b.ID, tk.ID, 2, "", now)
	require.NoError(t, err)
	rep, err := repo.CreateAndRecompute(ctx, r1, recompute)
	require.NoError(t, err)
	assert.Equal(t, 2.0, rep)

	dup, err := rating.New(a.ID, b.ID, tk.ID, 5, "", now)
	require.NoError(t, err)
	_, err = repo.CreateAndRecompute(ctx, dup, recompute)
	assert.ErrorIs(t, err, rating.ErrDuplicateRating)

	stored, err := users.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, stored.Reputation, "failed insert must roll back")

	ghost, err := rating.New(a.ID, uuid.New(), tk.ID, 5, "", now)
	require.NoError(t, err)
	_, err = repo.CreateAndRecompute(ctx, ghost, recompute)
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	got, err := repo.GetByID(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, r1.Score, got.Score)

	rep, err = repo.DeleteAndRecompute(ctx, r1, recompute)
	require.NoError(t, err)
	assert.Equal(t, user.DefaultReputation, rep)

	_, err = repo.DeleteAndRecompute(ctx, r1, recompute)
	assert.ErrorIs(t, err, rating.ErrRatingNotFound)
	_, err = repo.GetByID(ctx, r1.ID)
	assert.ErrorIs(t, err, rating.ErrRatingNotFound)
}
