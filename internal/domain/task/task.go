package task

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle status of a delivery task
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// AssignmentStatus tracks the taker's side of an accepted task
type AssignmentStatus string

const (
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentCancelled  AssignmentStatus = "cancelled"
)

// Task represents a parcel pickup job published by a user
type Task struct {
	ID               uuid.UUID         `json:"id"`
	PublisherID      uuid.UUID         `json:"publisher_id"`
	Company          string            `json:"company"`
	PickupPlace      string            `json:"pickup_place"`
	PickupCode       string            `json:"pickup_code"`
	Reward           float64           `json:"reward"`
	Deadline         time.Time         `json:"deadline"`
	Status           Status            `json:"status"`
	TakerID          *uuid.UUID        `json:"taker_id,omitempty"`
	AssignmentStatus *AssignmentStatus `json:"assignment_status,omitempty"`
	AcceptedAt       *time.Time        `json:"accepted_at,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
	CancelledBy      *Role             `json:"cancelled_by,omitempty"`
	Version          int               `json:"-"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Repository defines the interface for task data access.
// Save and Delete are compare-and-swap operations keyed on Version.
type Repository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)

	// ListAvailable returns pending tasks whose deadline is after now, newest first
	ListAvailable(ctx context.Context, now time.Time) ([]*Task, error)
	ListByPublisher(ctx context.Context, publisherID uuid.UUID) ([]*Task, error)

	// ListByTaker returns tasks accepted by takerID, most recently accepted first
	ListByTaker(ctx context.Context, takerID uuid.UUID) ([]*Task, error)

	// Save persists task if the stored version still equals expectedVersion,
	// otherwise it returns ErrVersionConflict. On success task.Version is bumped.
	Save(ctx context.Context, task *Task, expectedVersion int) error

	// Delete removes the task if the stored version still equals expectedVersion
	Delete(ctx context.Context, id uuid.UUID, expectedVersion int) error
}

// New validates the publish request and builds a pending task
func New(publisherID uuid.UUID, company, pickupPlace, pickupCode string, reward float64, deadline, now time.Time) (*Task, error) {
	company = strings.TrimSpace(company)
	pickupPlace = strings.TrimSpace(pickupPlace)
	pickupCode = strings.TrimSpace(pickupCode)

	if company == "" || pickupPlace == "" || pickupCode == "" {
		return nil, ErrMissingDetails
	}
	if !ValidReward(reward) {
		return nil, ErrInvalidReward
	}
	if !deadline.After(now) {
		return nil, ErrDeadlineNotInFuture
	}

	return &Task{
		ID:          uuid.New(),
		PublisherID: publisherID,
		Company:     company,
		PickupPlace: pickupPlace,
		PickupCode:  pickupCode,
		Reward:      reward,
		Deadline:    deadline,
		Status:      StatusPending,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Reward bounds match the NUMERIC(10,2) column
const (
	MinReward = 0.01
	MaxReward = 99999999.99
)

// ValidReward reports whether reward is within bounds and has at most two decimals
func ValidReward(reward float64) bool {
	if reward < MinReward || reward > MaxReward {
		return false
	}
	cents := reward * 100
	return math.Abs(cents-math.Round(cents)) < 1e-6
}

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsParticipant reports whether userID is the publisher or the taker
func (t *Task) IsParticipant(userID uuid.UUID) bool {
	return t.PublisherID == userID || t.IsTaker(userID)
}

// IsTaker reports whether userID accepted the task
func (t *Task) IsTaker(userID uuid.UUID) bool {
	return t.TakerID != nil && *t.TakerID == userID
}

// Counterparty returns the other participant of the task for userID
func (t *Task) Counterparty(userID uuid.UUID) (uuid.UUID, bool) {
	if t.TakerID == nil {
		return uuid.Nil, false
	}
	switch userID {
	case t.PublisherID:
		return *t.TakerID, true
	case *t.TakerID:
		return t.PublisherID, true
	}
	return uuid.Nil, false
}

// Clone returns a deep copy so a failed transition never leaks into the caller's value
func (t *Task) Clone() *Task {
	c := *t
	if t.TakerID != nil {
		id := *t.TakerID
		c.TakerID = &id
	}
	if t.AssignmentStatus != nil {
		s := *t.AssignmentStatus
		c.AssignmentStatus = &s
	}
	if t.AcceptedAt != nil {
		ts := *t.AcceptedAt
		c.AcceptedAt = &ts
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	if t.CancelledAt != nil {
		ts := *t.CancelledAt
		c.CancelledAt = &ts
	}
	if t.CancelledBy != nil {
		r := *t.CancelledBy
		c.CancelledBy = &r
	}
	return &c
}
