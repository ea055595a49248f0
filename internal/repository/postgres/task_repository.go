package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gocomet/parcel-pickup/internal/domain/task"
	"github.com/google/uuid"
)

const taskColumns = `id, publisher_id, company, pickup_place, pickup_code, reward, deadline, status,
	taker_id, assignment_status, accepted_at, completed_at, cancelled_at, cancelled_by,
	version, created_at, updated_at`

// TaskRepository stores delivery tasks in PostgreSQL
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, publisher_id, company, pickup_place, pickup_code, reward, deadline,
			status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.PublisherID, t.Company, t.PickupPlace, t.PickupCode, t.Reward, t.Deadline,
		t.Status, t.Version, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, task.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (r *TaskRepository) ListAvailable(ctx context.Context, now time.Time) ([]*task.Task, error) {
	return r.list(ctx, `
		SELECT `+taskColumns+` FROM available_tasks
		WHERE deadline > $1
		ORDER BY created_at DESC
	`, now)
}

func (r *TaskRepository) ListByPublisher(ctx context.Context, publisherID uuid.UUID) ([]*task.Task, error) {
	return r.list(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE publisher_id = $1
		ORDER BY created_at DESC
	`, publisherID)
}

func (r *TaskRepository) ListByTaker(ctx context.Context, takerID uuid.UUID) ([]*task.Task, error) {
	return r.list(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE taker_id = $1
		ORDER BY accepted_at DESC
	`, takerID)
}

func (r *TaskRepository) Save(ctx context.Context, t *task.Task, expectedVersion int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1, taker_id = $2, assignment_status = $3,
		    accepted_at = $4, completed_at = $5, cancelled_at = $6, cancelled_by = $7,
		    version = version + 1, updated_at = $8
		WHERE id = $9 AND version = $10
	`, t.Status, t.TakerID, t.AssignmentStatus,
		t.AcceptedAt, t.CompletedAt, t.CancelledAt, t.CancelledBy,
		t.UpdatedAt, t.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	if n == 0 {
		return task.ErrVersionConflict
	}
	t.Version = expectedVersion + 1
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND version = $2`, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return task.ErrVersionConflict
	}
	return nil
}

func (r *TaskRepository) list(ctx context.Context, query string, args ...interface{}) ([]*task.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*task.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t                task.Task
		takerID          uuid.NullUUID
		assignmentStatus sql.NullString
		cancelledBy      sql.NullString
		acceptedAt       sql.NullTime
		completedAt      sql.NullTime
		cancelledAt      sql.NullTime
	)

	err := row.Scan(
		&t.ID, &t.PublisherID, &t.Company, &t.PickupPlace, &t.PickupCode, &t.Reward, &t.Deadline, &t.Status,
		&takerID, &assignmentStatus, &acceptedAt, &completedAt, &cancelledAt, &cancelledBy,
		&t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if takerID.Valid {
		id := takerID.UUID
		t.TakerID = &id
	}
	if assignmentStatus.Valid {
		s := task.AssignmentStatus(assignmentStatus.String)
		t.AssignmentStatus = &s
	}
	if cancelledBy.Valid {
		role := task.Role(cancelledBy.String)
		t.CancelledBy = &role
	}
	if acceptedAt.Valid {
		t.AcceptedAt = &acceptedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if cancelledAt.Valid {
		t.CancelledAt = &cancelledAt.Time
	}
	return &t, nil
}
