package rating

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MinScore         = 1
	MaxScore         = 5
	MaxCommentLength = 500
)

var (
	ErrRatingNotFound  = errors.New("rating not found")
	ErrInvalidScore    = errors.New("score must be between 1 and 5")
	ErrCommentTooLong  = errors.New("comment must not exceed 500 characters")
	ErrSelfRating      = errors.New("cannot rate yourself")
	ErrDuplicateRating = errors.New("task already rated by this reviewer")
	ErrTaskNotComplete = errors.New("only completed tasks can be rated")
	ErrNotParticipant  = errors.New("only task participants can rate each other")
	ErrNotReviewer     = errors.New("only the reviewer may delete this rating")
)

// Rating is a scored review left by one task participant for the other
type Rating struct {
	ID         uuid.UUID `json:"id"`
	ReviewerID uuid.UUID `json:"reviewer_id"`
	RevieweeID uuid.UUID `json:"reviewee_id"`
	TaskID     uuid.UUID `json:"task_id"`
	Score      int       `json:"score"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Detail is a rating joined with the names and task summary shown in listings
type Detail struct {
	Rating
	ReviewerName string `json:"reviewer_name"`
	RevieweeName string `json:"reviewee_name"`
	Company      string `json:"company"`
	PickupPlace  string `json:"pickup_place"`
}

// Stats is the per-user rating projection
type Stats struct {
	UserID          uuid.UUID   `json:"user_id"`
	Username        string      `json:"username"`
	Reputation      float64     `json:"reputation"`
	ReceivedCount   int         `json:"received_count"`
	GivenCount      int         `json:"given_count"`
	AverageReceived float64     `json:"average_received"`
	Distribution    map[int]int `json:"distribution"`
}

// RecomputeFunc derives a reputation from every score a user has received
type RecomputeFunc func(scores []int) float64

// Repository defines the interface for rating data access.
// CreateAndRecompute and DeleteAndRecompute run as one transaction that also
// rewrites the reviewee's reputation with recompute.
type Repository interface {
	// CreateAndRecompute returns ErrDuplicateRating if (reviewer, task) exists
	CreateAndRecompute(ctx context.Context, rating *Rating, recompute RecomputeFunc) (float64, error)

	// DeleteAndRecompute removes the rating and returns the reviewee's new reputation
	DeleteAndRecompute(ctx context.Context, rating *Rating, recompute RecomputeFunc) (float64, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Rating, error)
	ListReceived(ctx context.Context, userID uuid.UUID) ([]*Detail, error)
	ListGiven(ctx context.Context, userID uuid.UUID) ([]*Detail, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*Detail, error)

	// Stats returns user.ErrUserNotFound when the user does not exist
	Stats(ctx context.Context, userID uuid.UUID) (*Stats, error)
}

// New validates the score and comment and builds a rating
func New(reviewerID, revieweeID, taskID uuid.UUID, score int, comment string, now time.Time) (*Rating, error) {
	if score < MinScore || score > MaxScore {
		return nil, ErrInvalidScore
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return nil, ErrCommentTooLong
	}
	if reviewerID == revieweeID {
		return nil, ErrSelfRating
	}
	return &Rating{
		ID:         uuid.New(),
		ReviewerID: reviewerID,
		RevieweeID: revieweeID,
		TaskID:     taskID,
		Score:      score,
		Comment:    comment,
		CreatedAt:  now,
	}, nil
}

// Reputation returns a RecomputeFunc yielding the arithmetic mean of scores,
// or fallback when there are none.
func Reputation(fallback float64) RecomputeFunc {
	return func(scores []int) float64 {
		if len(scores) == 0 {
			return fallback
		}
		total := 0
		for _, s := range scores {
			total += s
		}
		return float64(total) / float64(len(scores))
	}
}
