package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gocomet/parcel-pickup/internal/domain/task"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskRepository stores delivery tasks through gorm
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	if err := r.db.WithContext(ctx).Create(toTaskRecord(t)).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	var rec taskRecord
	err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, task.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return rec.toDomain()
}

// ListAvailable filters deadlines in Go; SQLite compares stored times as text.
func (r *TaskRepository) ListAvailable(ctx context.Context, now time.Time) ([]*task.Task, error) {
	tasks, err := r.list(r.db.WithContext(ctx).Where("status = ?", string(task.StatusPending)))
	if err != nil {
		return nil, err
	}

	available := tasks[:0]
	for _, t := range tasks {
		if t.Deadline.After(now) {
			available = append(available, t)
		}
	}
	sort.SliceStable(available, func(i, j int) bool {
		return available[i].CreatedAt.After(available[j].CreatedAt)
	})
	return available, nil
}

func (r *TaskRepository) ListByPublisher(ctx context.Context, publisherID uuid.UUID) ([]*task.Task, error) {
	tasks, err := r.list(r.db.WithContext(ctx).Where("publisher_id = ?", publisherID.String()))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (r *TaskRepository) ListByTaker(ctx context.Context, takerID uuid.UUID) ([]*task.Task, error) {
	tasks, err := r.list(r.db.WithContext(ctx).Where("taker_id = ?", takerID.String()))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return acceptedAt(tasks[i]).After(acceptedAt(tasks[j]))
	})
	return tasks, nil
}

func (r *TaskRepository) Save(ctx context.Context, t *task.Task, expectedVersion int) error {
	rec := toTaskRecord(t)
	res := r.db.WithContext(ctx).Model(&taskRecord{}).
		Where("id = ? AND version = ?", rec.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":            rec.Status,
			"taker_id":          rec.TakerID,
			"assignment_status": rec.AssignmentStatus,
			"accepted_at":       rec.AcceptedAt,
			"completed_at":      rec.CompletedAt,
			"cancelled_at":      rec.CancelledAt,
			"cancelled_by":      rec.CancelledBy,
			"version":           gorm.Expr("version + 1"),
			"updated_at":        rec.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("save task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return task.ErrVersionConflict
	}
	t.Version = expectedVersion + 1
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND version = ?", id.String(), expectedVersion).
		Delete(&taskRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return task.ErrVersionConflict
	}
	return nil
}

func (r *TaskRepository) list(q *gorm.DB) ([]*task.Task, error) {
	var recs []taskRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]*task.Task, 0, len(recs))
	for i := range recs {
		t, err := recs[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func acceptedAt(t *task.Task) time.Time {
	if t.AcceptedAt == nil {
		return time.Time{}
	}
	return *t.AcceptedAt
}
