package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocomet/parcel-pickup/internal/domain/task"
	"github.com/gocomet/parcel-pickup/internal/validation"
	"github.com/gocomet/parcel-pickup/pkg/logger"
	"github.com/google/uuid"
)

// maxAttempts bounds the reload-and-retry loop on version conflicts.
// A task moves forward at most twice, so three attempts always settle.
const maxAttempts = 3

// Recorder receives lifecycle events for monitoring
type Recorder interface {
	RecordTaskPublished(taskID string, reward float64)
	RecordTaskTransition(taskID string, event string, status string)
}

// PublishInput is a request to publish a new task
type PublishInput struct {
	Company     string    `json:"company" validate:"required,max=100"`
	PickupPlace string    `json:"pickup_place" validate:"required,max=200"`
	PickupCode  string    `json:"pickup_code" validate:"required,max=50"`
	Reward      float64   `json:"reward" validate:"gte=0.01,lte=99999999.99,cents"`
	Deadline    time.Time `json:"deadline" validate:"required"`
}

// Service drives the task lifecycle on top of compare-and-swap persistence
type Service struct {
	tasks    task.Repository
	recorder Recorder
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates a new task service
func NewService(tasks task.Repository, recorder Recorder, log *logger.Logger) *Service {
	return &Service{
		tasks:    tasks,
		recorder: recorder,
		logger:   log,
		now:      time.Now,
	}
}

// Publish creates a pending task owned by publisherID
func (s *Service) Publish(ctx context.Context, publisherID uuid.UUID, in PublishInput) (*task.Task, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	t, err := task.New(publisherID, in.Company, in.PickupPlace, in.PickupCode, in.Reward, in.Deadline.UTC(), s.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.logger.Info("Task published",
		logger.UUID("task_id", t.ID),
		logger.UUID("publisher_id", publisherID),
		logger.Float64("reward", t.Reward),
	)
	s.recorder.RecordTaskPublished(t.ID.String(), t.Reward)

	return t, nil
}

// Accept assigns a pending task to takerID
func (s *Service) Accept(ctx context.Context, id, takerID uuid.UUID) (*task.Task, error) {
	return s.transition(ctx, id, task.EventAccept, takerID, task.RoleCandidate)
}

// Complete marks an accepted task done by its taker
func (s *Service) Complete(ctx context.Context, id, takerID uuid.UUID) (*task.Task, error) {
	return s.transition(ctx, id, task.EventComplete, takerID, task.RoleTaker)
}

// Cancel cancels a task acting in the given role
func (s *Service) Cancel(ctx context.Context, id, actorID uuid.UUID, role task.Role) (*task.Task, error) {
	if role != task.RolePublisher && role != task.RoleTaker {
		return nil, task.ErrInvalidRole
	}
	return s.transition(ctx, id, task.EventCancel, actorID, role)
}

// Delete physically removes a pending task owned by publisherID
func (s *Service) Delete(ctx context.Context, id, publisherID uuid.UUID) error {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		current, err := s.tasks.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := task.CanDelete(current, publisherID); err != nil {
			return err
		}

		err = s.tasks.Delete(ctx, id, current.Version)
		if errors.Is(err, task.ErrVersionConflict) {
			s.logger.Debug("Task changed during delete, retrying",
				logger.UUID("task_id", id),
				logger.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}

		s.logger.Info("Task deleted", logger.UUID("task_id", id))
		return nil
	}
	return task.ErrVersionConflict
}

// Get returns a single task
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// ListAvailable returns pending tasks that can still be accepted
func (s *Service) ListAvailable(ctx context.Context) ([]*task.Task, error) {
	return s.tasks.ListAvailable(ctx, s.now().UTC())
}

// ListPublished returns every task published by userID
func (s *Service) ListPublished(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	return s.tasks.ListByPublisher(ctx, userID)
}

// ListAccepted returns every task accepted by userID
func (s *Service) ListAccepted(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	return s.tasks.ListByTaker(ctx, userID)
}

// transition runs load → apply → compare-and-swap. A conflict reloads the task so
// the state machine re-validates against the winner's write.
func (s *Service) transition(ctx context.Context, id uuid.UUID, event task.Event, actorID uuid.UUID, role task.Role) (*task.Task, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		current, err := s.tasks.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		if err := task.Apply(next, event, actorID, role, s.now().UTC()); err != nil {
			return nil, err
		}

		err = s.tasks.Save(ctx, next, current.Version)
		if errors.Is(err, task.ErrVersionConflict) {
			s.logger.Debug("Task changed concurrently, retrying",
				logger.UUID("task_id", id),
				logger.String("event", string(event)),
				logger.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("save task: %w", err)
		}

		s.logger.Info("Task status changed",
			logger.UUID("task_id", id),
			logger.UUID("actor_id", actorID),
			logger.String("event", string(event)),
			logger.String("from", string(current.Status)),
			logger.String("to", string(next.Status)),
		)
		s.recorder.RecordTaskTransition(id.String(), string(event), string(next.Status))

		return next, nil
	}

	s.logger.Warn("Task transition gave up after repeated conflicts",
		logger.UUID("task_id", id),
		logger.String("event", string(event)),
	)
	return nil, task.ErrVersionConflict
}
