package ratings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocomet/parcel-pickup/internal/domain/rating"
	"github.com/gocomet/parcel-pickup/internal/domain/task"
	"github.com/gocomet/parcel-pickup/internal/validation"
	"github.com/gocomet/parcel-pickup/pkg/logger"
	"github.com/google/uuid"
)

// Recorder receives reputation changes for monitoring
type Recorder interface {
	RecordRatingChange(action string, userID string, score int, reputation float64)
}

// AddInput is a request to rate the counterparty of a completed task
type AddInput struct {
	RevieweeID uuid.UUID `json:"reviewee_id" validate:"required"`
	TaskID     uuid.UUID `json:"task_id" validate:"required"`
	Score      int       `json:"score" validate:"min=1,max=5"`
	Comment    string    `json:"comment" validate:"max=500"`
}

// Result is a stored rating with the reviewee's recomputed reputation
type Result struct {
	Rating     *rating.Rating `json:"rating"`
	Reputation float64        `json:"reviewee_reputation"`
}

// UserRatings groups the ratings a user received and gave
type UserRatings struct {
	Received []*rating.Detail `json:"received"`
	Given    []*rating.Detail `json:"given"`
}

// Service manages ratings and keeps reputations consistent
type Service struct {
	ratings   rating.Repository
	tasks     task.Repository
	recompute rating.RecomputeFunc
	recorder  Recorder
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates a new rating service. defaultReputation is the score of a
// user who has received no ratings.
func NewService(ratings rating.Repository, tasks task.Repository, defaultReputation float64, recorder Recorder, log *logger.Logger) *Service {
	return &Service{
		ratings:   ratings,
		tasks:     tasks,
		recompute: rating.Reputation(defaultReputation),
		recorder:  recorder,
		logger:    log,
		now:       time.Now,
	}
}

// Add stores a rating from reviewerID and recomputes the reviewee's reputation
func (s *Service) Add(ctx context.Context, reviewerID uuid.UUID, in AddInput) (*Result, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	r, err := rating.New(reviewerID, in.RevieweeID, in.TaskID, in.Score, in.Comment, s.now().UTC())
	if err != nil {
		return nil, err
	}

	t, err := s.tasks.GetByID(ctx, in.TaskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusCompleted {
		return nil, rating.ErrTaskNotComplete
	}
	counterparty, ok := t.Counterparty(reviewerID)
	if !ok || counterparty != in.RevieweeID {
		return nil, rating.ErrNotParticipant
	}

	reputation, err := s.ratings.CreateAndRecompute(ctx, r, s.recompute)
	if err != nil {
		if errors.Is(err, rating.ErrDuplicateRating) {
			return nil, err
		}
		return nil, fmt.Errorf("create rating: %w", err)
	}

	s.logger.Info("Rating added",
		logger.UUID("rating_id", r.ID),
		logger.UUID("task_id", r.TaskID),
		logger.UUID("reviewee_id", r.RevieweeID),
		logger.Int("score", r.Score),
		logger.Float64("reputation", reputation),
	)
	s.recorder.RecordRatingChange("added", r.RevieweeID.String(), r.Score, reputation)

	return &Result{Rating: r, Reputation: reputation}, nil
}

// Delete removes a rating owned by reviewerID and recomputes the reviewee's reputation
func (s *Service) Delete(ctx context.Context, reviewerID, ratingID uuid.UUID) (float64, error) {
	r, err := s.ratings.GetByID(ctx, ratingID)
	if err != nil {
		return 0, err
	}
	if r.ReviewerID != reviewerID {
		return 0, rating.ErrNotReviewer
	}

	reputation, err := s.ratings.DeleteAndRecompute(ctx, r, s.recompute)
	if err != nil {
		if errors.Is(err, rating.ErrRatingNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("delete rating: %w", err)
	}

	s.logger.Info("Rating deleted",
		logger.UUID("rating_id", r.ID),
		logger.UUID("reviewee_id", r.RevieweeID),
		logger.Float64("reputation", reputation),
	)
	s.recorder.RecordRatingChange("deleted", r.RevieweeID.String(), r.Score, reputation)

	return reputation, nil
}

// ListForUser returns the ratings userID received and gave
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) (*UserRatings, error) {
	received, err := s.ratings.ListReceived(ctx, userID)
	if err != nil {
		return nil, err
	}
	given, err := s.ratings.ListGiven(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserRatings{Received: received, Given: given}, nil
}

// ListForTask returns every rating attached to taskID
func (s *Service) ListForTask(ctx context.Context, taskID uuid.UUID) ([]*rating.Detail, error) {
	return s.ratings.ListByTask(ctx, taskID)
}

// Stats returns the rating projection of userID
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*rating.Stats, error) {
	return s.ratings.Stats(ctx, userID)
}
