// Package sqlite implements the domain repositories on an embedded SQLite
// database through gorm. It backs local development and the test suites.
package sqlite

import (
	"errors"
	"strings"
	"time"

	"github.com/gocomet/parcel-pickup/internal/domain/rating"
	"github.com/gocomet/parcel-pickup/internal/domain/task"
	"github.com/gocomet/parcel-pickup/internal/domain/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRecord struct {
	ID           string    `gorm:"primaryKey"`
	Username     string    `gorm:"size:50;uniqueIndex;not null"`
	Email        string    `gorm:"size:255;uniqueIndex;not null"`
	Phone        string    `gorm:"size:20;uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Reputation   float64   `gorm:"not null;default:5"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (userRecord) TableName() string { return "users" }

type taskRecord struct {
	ID               string    `gorm:"primaryKey"`
	PublisherID      string    `gorm:"index;not null"`
	Company          string    `gorm:"size:100;not null"`
	PickupPlace      string    `gorm:"size:255;not null"`
	PickupCode       string    `gorm:"size:50;not null"`
	Reward           float64   `gorm:"not null"`
	Deadline         time.Time `gorm:"not null"`
	Status           string    `gorm:"size:20;index;not null"`
	TakerID          *string   `gorm:"index"`
	AssignmentStatus *string   `gorm:"size:20"`
	AcceptedAt       *time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time
	CancelledBy      *string `gorm:"size:20"`
	Version          int     `gorm:"not null;default:1"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (taskRecord) TableName() string { return "tasks" }

type ratingRecord struct {
	ID         string    `gorm:"primaryKey"`
	ReviewerID string    `gorm:"uniqueIndex:idx_ratings_reviewer_task;not null"`
	RevieweeID string    `gorm:"index;not null"`
	TaskID     string    `gorm:"uniqueIndex:idx_ratings_reviewer_task;not null"`
	Score      int       `gorm:"not null"`
	Comment    string    `gorm:"size:500"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (ratingRecord) TableName() string { return "ratings" }

// Migrate creates or updates the tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&userRecord{}, &taskRecord{}, &ratingRecord{})
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toUserRecord(u *user.User) *userRecord {
	return &userRecord{
		ID:           u.ID.String(),
		Username:     u.Username,
		Email:        u.Email,
		Phone:        u.Phone,
		PasswordHash: u.PasswordHash,
		Reputation:   u.Reputation,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r *userRecord) toDomain() (*user.User, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, err
	}
	return &user.User{
		ID:           id,
		Username:     r.Username,
		Email:        r.Email,
		Phone:        r.Phone,
		PasswordHash: r.PasswordHash,
		Reputation:   r.Reputation,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

func toTaskRecord(t *task.Task) *taskRecord {
	rec := &taskRecord{
		ID:          t.ID.String(),
		PublisherID: t.PublisherID.String(),
		Company:     t.Company,
		PickupPlace: t.PickupPlace,
		PickupCode:  t.PickupCode,
		Reward:      t.Reward,
		Deadline:    t.Deadline,
		Status:      string(t.Status),
		AcceptedAt:  t.AcceptedAt,
		CompletedAt: t.CompletedAt,
		CancelledAt: t.CancelledAt,
		Version:     t.Version,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.TakerID != nil {
		s := t.TakerID.String()
		rec.TakerID = &s
	}
	if t.AssignmentStatus != nil {
		s := string(*t.AssignmentStatus)
		rec.AssignmentStatus = &s
	}
	if t.CancelledBy != nil {
		s := string(*t.CancelledBy)
		rec.CancelledBy = &s
	}
	return rec
}

func (r *taskRecord) toDomain() (*task.Task, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, err
	}
	publisherID, err := uuid.Parse(r.PublisherID)
	if err != nil {
		return nil, err
	}

	t := &task.Task{
		ID:          id,
		PublisherID: publisherID,
		Company:     r.Company,
		PickupPlace: r.PickupPlace,
		PickupCode:  r.PickupCode,
		Reward:      r.Reward,
		Deadline:    r.Deadline,
		Status:      task.Status(r.Status),
		AcceptedAt:  r.AcceptedAt,
		CompletedAt: r.CompletedAt,
		CancelledAt: r.CancelledAt,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.TakerID != nil {
		takerID, err := uuid.Parse(*r.TakerID)
		if err != nil {
			return nil, err
		}
		t.TakerID = &takerID
	}
	if r.AssignmentStatus != nil {
		s := task.AssignmentStatus(*r.AssignmentStatus)
		t.AssignmentStatus = &s
	}
	if r.CancelledBy != nil {
		role := task.Role(*r.CancelledBy)
		t.CancelledBy = &role
	}
	return t, nil
}

func toRatingRecord(rt *rating.Rating) *ratingRecord {
	return &ratingRecord{
		ID:         rt.ID.String(),
		ReviewerID: rt.ReviewerID.String(),
		RevieweeID: rt.RevieweeID.String(),
		TaskID:     rt.TaskID.String(),
		Score:      rt.Score,
		Comment:    rt.Comment,
		CreatedAt:  rt.CreatedAt,
	}
}

func (r *ratingRecord) toDomain() (*rating.Rating, error) {
	ids := make([]uuid.UUID, 4)
	for i, s := range []string{r.ID, r.ReviewerID, r.RevieweeID, r.TaskID} {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return &rating.Rating{
		ID:         ids[0],
		ReviewerID: ids[1],
		RevieweeID: ids[2],
		TaskID:     ids[3],
		Score:      r.Score,
		Comment:    r.Comment,
		CreatedAt:  r.CreatedAt,
	}, nil
}
