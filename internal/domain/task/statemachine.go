package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a lifecycle action requested on a task
type Event string

const (
	EventAccept   Event = "accept"
	EventComplete Event = "complete"
	EventCancel   Event = "cancel"
)

// Role is the capacity in which a user acts on a task
type Role string

const (
	RolePublisher Role = "publisher"
	RoleTaker     Role = "taker"
	// RoleCandidate is any user other than the publisher claiming a pending task
	RoleCandidate Role = "candidate"
)

// ParseRole parses the cancel role supplied by a client
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RolePublisher:
		return RolePublisher, nil
	case RoleTaker:
		return RoleTaker, nil
	}
	return "", ErrInvalidRole
}

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  Status
	Event Event
	Role  Role
	To    Status
}

var transitions = []Transition{
	{From: StatusPending, Event: EventAccept, Role: RoleCandidate, To: StatusAccepted},
	{From: StatusAccepted, Event: EventComplete, Role: RoleTaker, To: StatusCompleted},
	{From: StatusPending, Event: EventCancel, Role: RolePublisher, To: StatusCancelled},
	{From: StatusAccepted, Event: EventCancel, Role: RolePublisher, To: StatusCancelled},
	{From: StatusAccepted, Event: EventCancel, Role: RoleTaker, To: StatusCancelled},
}

type transitionKey struct {
	From  Status
	Event Event
	Role  Role
}

var transitionMap = func() map[transitionKey]Status {
	m := make(map[transitionKey]Status, len(transitions))
	for _, t := range transitions {
		m[transitionKey{t.From, t.Event, t.Role}] = t.To
	}
	return m
}()

// Transitions returns the full state machine table
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

// Next looks up the target status for an event, or returns a domain error
func Next(from Status, event Event, role Role) (Status, error) {
	if to, ok := transitionMap[transitionKey{from, event, role}]; ok {
		return to, nil
	}
	if event == EventAccept && from == StatusAccepted {
		return "", ErrTaskAlreadyAccepted
	}
	if event == EventAccept {
		return "", fmt.Errorf("%w: task is %s", ErrTaskNotPending, from)
	}
	return "", fmt.Errorf("%w: %s on a %s task is not allowed for %s", ErrInvalidTransition, event, from, role)
}

// Apply validates the actor, then moves t to the next status in place.
// Callers should apply to a Clone and persist with the original Version.
func Apply(t *Task, event Event, actorID uuid.UUID, role Role, now time.Time) error {
	to, err := Next(t.Status, event, role)
	if err != nil {
		return err
	}

	switch role {
	case RoleCandidate:
		if actorID == t.PublisherID {
			return ErrSelfAccept
		}
	case RolePublisher:
		if actorID != t.PublisherID {
			return ErrNotPublisher
		}
	case RoleTaker:
		if !t.IsTaker(actorID) {
			return ErrNotTaker
		}
	}

	switch event {
	case EventAccept:
		if !now.Before(t.Deadline) {
			return ErrTaskExpired
		}
		taker := actorID
		assignment := AssignmentInProgress
		t.TakerID = &taker
		t.AssignmentStatus = &assignment
		t.AcceptedAt = &now
	case EventComplete:
		assignment := AssignmentCompleted
		t.AssignmentStatus = &assignment
		t.CompletedAt = &now
	case EventCancel:
		if t.AssignmentStatus != nil {
			assignment := AssignmentCancelled
			t.AssignmentStatus = &assignment
		}
		by := role
		t.CancelledAt = &now
		t.CancelledBy = &by
	}

	t.Status = to
	t.UpdatedAt = now
	return nil
}

// CanDelete checks that actorID may physically remove t
func CanDelete(t *Task, actorID uuid.UUID) error {
	if t.PublisherID != actorID {
		return ErrNotPublisher
	}
	if t.Status != StatusPending {
		return fmt.Errorf("%w: task is %s", ErrTaskNotPending, t.Status)
	}
	return nil
}
