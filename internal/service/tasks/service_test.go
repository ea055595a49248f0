package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gocomet/parcel-pickup/internal/domain/task"
	"github.com/gocomet/parcel-pickup/internal/domain/user"
	"github.com/gocomet/parcel-pickup/internal/repository/sqlite"
	"github.com/gocomet/parcel-pickup/pkg/database"
	apperrors "github.com/gocomet/parcel-pickup/pkg/errors"
	"github.com/gocomet/parcel-pickup/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	taskID string
	event  string
	status string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeRecorder) RecordTaskPublished(taskID string, reward float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{taskID: taskID, event: "publish", status: string(task.StatusPending)})
}

func (f *fakeRecorder) RecordTaskTransition(taskID string, event string, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{taskID: taskID, event: event, status: status})
}

type fixture struct {
	svc      *Service
	users    *sqlite.UserRepository
	recorder *fakeRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewSQLiteDB("file::memory:")
	require.NoError(t, err)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	rec := &fakeRecorder{}
	return &fixture{
		svc:      NewService(sqlite.NewTaskRepository(db), rec, logger.NewNop()),
		users:    sqlite.NewUserRepository(db),
		recorder: rec,
	}
}

// newUser stores a user so foreign keys hold
func (f *fixture) newUser(t *testing.T, name string, n int) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	u := &user.User{
		ID:           uuid.New(),
		Username:     name,
		Email:        name + "@example.com",
		Phone:        "1380000000" + string(rune('0'+n)),
		PasswordHash: "x",
		Reputation:   user.DefaultReputation,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func publishInput(reward float64, deadline time.Time) PublishInput {
	return PublishInput{
		Company:     "SF Express",
		PickupPlace: "North Gate Locker 3",
		PickupCode:  "8-2-1024",
		Reward:      reward,
		Deadline:    deadline,
	}
}

// TestLifecycle_PublishAcceptComplete tests the happy path end to end
func TestLifecycle_PublishAcceptComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.newUser(t, "alice", 1)
	b := f.newUser(t, "bob", 2)

	published, err := f.svc.Publish(ctx, a, publishInput(50, time.Now().Add(24*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, published.Status)

	available, err := f.svc.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, published.ID, available[0].ID)

	accepted, err := f.svc.Accept(ctx, published.ID, b)
	require.NoError(t, err)
	assert.Equal(t, task.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.TakerID)
	assert.Equal(t, b, *accepted.TakerID)
	assert.Equal(t, task.AssignmentInProgress, *accepted.AssignmentStatus)

	available, err = f.svc.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Empty(t, available)

	mine, err := f.svc.ListAccepted(ctx, b)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, published.ID, mine[0].ID)

	done, err := f.svc.Complete(ctx, published.ID, b)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, done.Status)
	assert.Equal(t, task.AssignmentCompleted, *done.AssignmentStatus)

	stored, err := f.svc.Get(ctx, published.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, stored.Status)
	assert.Equal(t, 3, stored.Version)

	f.recorder.mu.Lock()
	defer f.recorder.mu.Unlock()
	require.Len(t, f.recorder.events, 3)
	assert.Equal(t, "complete", f.recorder.events[2].event)
}

// TestPublish_Rejections tests reward and deadline rules
func TestPublish_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		in      PublishInput
		wantErr error
	}{
		{"zero reward", publishInput(0, time.Now().Add(time.Hour)), nil},
		{"negative reward", publishInput(-5, time.Now().Add(time.Hour)), nil},
		{"sub-cent reward", publishInput(0.004, time.Now().Add(time.Hour)), nil},
		{"three decimal reward", publishInput(2.345, time.Now().Add(time.Hour)), nil},
		{"reward too large", publishInput(1e9, time.Now().Add(time.Hour)), nil},
		{"past deadline", publishInput(10, time.Now().Add(-time.Minute)), task.ErrDeadlineNotInFuture},
		{"blank company", PublishInput{Company: "  ", PickupPlace: "x", PickupCode: "y", Reward: 1, Deadline: time.Now().Add(time.Hour)}, task.ErrMissingDetails},
		{"missing deadline", PublishInput{Company: "a", PickupPlace: "b", PickupCode: "c", Reward: 1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			a := f.newUser(t, "alice", 1)

			_, err := f.svc.Publish(context.Background(), a, tt.in)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.True(t, apperrors.IsAppError(err), "expected validation error, got %v", err)
			}
		})
	}
}

// TestAccept_ConcurrentSingleWinner tests that racing accepts produce exactly one taker
func TestAccept_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.newUser(t, "alice", 1)

	published, err := f.svc.Publish(ctx, a, publishInput(20, time.Now().Add(time.Hour)))
	require.NoError(t, err)

	const n = 8
	takers := make([]uuid.UUID, n)
	for i := range takers {
		takers[i] = f.newUser(t, "taker"+string(rune('a'+i)), i+2)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []uuid.UUID
		rejected  int
		other     []error
	)
	start := make(chan struct{})
	for _, id := range takers {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			<-start
			_, err := f.svc.Accept(ctx, published.ID, id)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes = append(successes, id)
			case errors.Is(err, task.ErrTaskAlreadyAccepted):
				rejected++
			default:
				other = append(other, err)
			}
		}(id)
	}
	close(start)
	wg.Wait()

	assert.Empty(t, other)
	require.Len(t, successes, 1)
	assert.Equal(t, n-1, rejected)

	stored, err := f.svc.Get(ctx, published.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TakerID)
	assert.Equal(t, successes[0], *stored.TakerID)
}

// TestAccept_Rejections tests self-accept, expiry and non-pending tasks
func TestAccept_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.newUser(t, "alice", 1)
	b := f.newUser(t, "bob", 2)
	c := f.newUser(t, "carol", 3)

	published, err := f.svc.Publish(ctx, a, publishInput(20, time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, published.ID, a)
	assert.ErrorIs(t, err, task.ErrSelfAccept)

	_, err = f.svc.Accept(ctx, published.ID, b)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, published.ID, c)
	assert.ErrorIs(t, err, task.ErrTaskAlreadyAccepted)

	_, err = f.svc.Accept(ctx, uuid.New(), b)
	assert.ErrorIs(t, err, task.ErrTaskNotFound)

	// deadline passes while the task is still pending
	expiring, err := f.svc.Publish(ctx, a, publishInput(5, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = f.svc.Accept(ctx, expiring.ID, b)
	assert.ErrorIs(t, err, task.ErrTaskExpired)

	available, err := f.svc.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Empty(t, available)
}

// TestComplete_OnlyTaker tests that only the assigned taker may complete
func TestComplete_OnlyTaker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.newUser(t, "alice", 1)
	b := f.newUser(t, "bob", 2)

	published, err := f.svc.Publish(ctx, a, publishInput(20, time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, published.ID, b)
	assert.ErrorIs(t, err, task.ErrInvalidTransition)

	_, err = f.svc.Accept(ctx, published.ID, b)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, published.ID, a)
	assert.ErrorIs(t, err, task.ErrNotTaker)
}

// TestCancel tests the cancel matrix by status and role
func TestCancel(t *testing.T) {
	tests := []struct {
		name     string
		accept   bool
		actor    string
		role     task.Role
		wantErr  error
		wantAsgn *task.AssignmentStatus
	}{
		{"publisher cancels pending", false, "publisher", task.RolePublisher, nil, nil},
		{"taker role on pending", false, "taker", task.RoleTaker, task.ErrInvalidTransition, nil},
		{"publisher cancels accepted", true, "publisher", task.RolePublisher, nil, ptr(task.AssignmentCancelled)},
		{"taker cancels accepted", true, "taker", task.RoleTaker, nil, ptr(task.AssignmentCancelled)},
		{"stranger claims publisher", true, "stranger", task.RolePublisher, task.ErrNotPublisher, nil},
		{"stranger claims taker", true, "stranger", task.RoleTaker, task.ErrNotTaker, nil},
		{"candidate role refused", false, "publisher", task.RoleCandidate, task.ErrInvalidRole, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			actors := map[string]uuid.UUID{
				"publisher": f.newUser(t, "alice", 1),
				"taker":     f.newUser(t, "bob", 2),
				"stranger":  f.newUser(t, "carol", 3),
			}

			published, err := f.svc.Publish(ctx, actors["publisher"], publishInput(20, time.Now().Add(time.Hour)))
			require.NoError(t, err)
			if tt.accept {
				_, err = f.svc.Accept(ctx, published.ID, actors["taker"])
				require.NoError(t, err)
			}

			cancelled, err := f.svc.Cancel(ctx, published.ID, actors[tt.actor], tt.role)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, task.StatusCancelled, cancelled.Status)
			require.NotNil(t, cancelled.CancelledBy)
			assert.Equal(t, tt.role, *cancelled.CancelledBy)
			assert.Equal(t, tt.wantAsgn, cancelled.AssignmentStatus)

			_, err = f.svc.Cancel(ctx, published.ID, actors["publisher"], task.RolePublisher)
			assert.ErrorIs(t, err, task.ErrInvalidTransition, "cancelled is terminal")
		})
	}
}

// TestDelete tests that only the publisher may delete, and only while pending
func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.newUser(t, "alice", 1)
	b := f.newUser(t, "bob", 2)

	pending, err := f.svc.Publish(ctx, a, publishInput(20, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	taken, err := f.svc.Publish(ctx, a, publishInput(30, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, taken.ID, b)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, pending.ID, b), task.ErrNotPublisher)
	assert.ErrorIs(t, f.svc.Delete(ctx, taken.ID, a), task.ErrTaskNotPending)

	require.NoError(t, f.svc.Delete(ctx, pending.ID, a))
	_, err = f.svc.Get(ctx, pending.ID)
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, pending.ID, a), task.ErrTaskNotFound)

	published, err := f.svc.ListPublished(ctx, a)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, taken.ID, published[0].ID)
}

func ptr[T any](v T) *T { return &v }
