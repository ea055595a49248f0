package dto

import (
	"time"

	"github.com/gocomet/parcel-pickup/internal/domain/task"
	"github.com/google/uuid"
)

// TaskResponse is a task as shown to a particular viewer
type TaskResponse struct {
	ID               uuid.UUID              `json:"id"`
	PublisherID      uuid.UUID              `json:"publisher_id"`
	Company          string                 `json:"company"`
	PickupPlace      string                 `json:"pickup_place"`
	PickupCode       string                 `json:"pickup_code,omitempty"`
	Reward           float64                `json:"reward"`
	Deadline         time.Time              `json:"deadline"`
	Status           task.Status            `json:"status"`
	TakerID          *uuid.UUID             `json:"taker_id,omitempty"`
	AssignmentStatus *task.AssignmentStatus `json:"assignment_status,omitempty"`
	AcceptedAt       *time.Time             `json:"accepted_at,omitempty"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
	CancelledAt      *time.Time             `json:"cancelled_at,omitempty"`
	CancelledBy      *task.Role             `json:"cancelled_by,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// NewTaskResponse builds the view of t for viewer. The pickup code is only
// shown to the publisher and the taker.
func NewTaskResponse(t *task.Task, viewer uuid.UUID) TaskResponse {
	resp := TaskResponse{
		ID:               t.ID,
		PublisherID:      t.PublisherID,
		Company:          t.Company,
		PickupPlace:      t.PickupPlace,
		Reward:           t.Reward,
		Deadline:         t.Deadline,
		Status:           t.Status,
		TakerID:          t.TakerID,
		AssignmentStatus: t.AssignmentStatus,
		AcceptedAt:       t.AcceptedAt,
		CompletedAt:      t.CompletedAt,
		CancelledAt:      t.CancelledAt,
		CancelledBy:      t.CancelledBy,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if viewer != uuid.Nil && t.IsParticipant(viewer) {
		resp.PickupCode = t.PickupCode
	}
	return resp
}

// NewTaskList builds the views of tasks for viewer
func NewTaskList(tasks []*task.Task, viewer uuid.UUID) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, NewTaskResponse(t, viewer))
	}
	return out
}

// HealthResponse is returned by the health endpoints
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Error     string    `json:"error,omitempty"`
}

// DeleteRatingResponse reports the reviewee's reputation after a delete
type DeleteRatingResponse struct {
	Message    string  `json:"message"`
	Reputation float64 `json:"reviewee_reputation"`
}
