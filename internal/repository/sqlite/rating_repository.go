package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocomet/parcel-pickup/internal/domain/rating"
	"github.com/gocomet/parcel-pickup/internal/domain/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RatingRepository stores ratings and maintains user reputation through gorm
type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

type detailRow struct {
	ID           string
	ReviewerID   string
	RevieweeID   string
	TaskID       string
	Score        int
	Comment      string
	CreatedAt    time.Time
	ReviewerName string
	RevieweeName string
	Company      string
	PickupPlace  string
}

func (r *RatingRepository) CreateAndRecompute(ctx context.Context, rt *rating.Rating, recompute rating.RecomputeFunc) (float64, error) {
	var reputation float64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, rt.RevieweeID); err != nil {
			return err
		}

		err := tx.Create(toRatingRecord(rt)).Error
		if isUniqueViolation(err) {
			return rating.ErrDuplicateRating
		}
		if err != nil {
			return fmt.Errorf("insert rating: %w", err)
		}

		reputation, err = updateReputation(tx, rt.RevieweeID, recompute)
		return err
	})
	return reputation, err
}

func (r *RatingRepository) DeleteAndRecompute(ctx context.Context, rt *rating.Rating, recompute rating.RecomputeFunc) (float64, error) {
	var reputation float64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, rt.RevieweeID); err != nil {
			return err
		}

		res := tx.Where("id = ? AND reviewer_id = ?", rt.ID.String(), rt.ReviewerID.String()).Delete(&ratingRecord{})
		if res.Error != nil {
			return fmt.Errorf("delete rating: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return rating.ErrRatingNotFound
		}

		var err error
		reputation, err = updateReputation(tx, rt.RevieweeID, recompute)
		return err
	})
	return reputation, err
}

func (r *RatingRepository) GetByID(ctx context.Context, id uuid.UUID) (*rating.Rating, error) {
	var rec ratingRecord
	err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, rating.ErrRatingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return rec.toDomain()
}

func (r *RatingRepository) ListReceived(ctx context.Context, userID uuid.UUID) ([]*rating.Detail, error) {
	return r.listDetails(ctx, "r.reviewee_id = ?", userID)
}

func (r *RatingRepository) ListGiven(ctx context.Context, userID uuid.UUID) ([]*rating.Detail, error) {
	return r.listDetails(ctx, "r.reviewer_id = ?", userID)
}

func (r *RatingRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*rating.Detail, error) {
	return r.listDetails(ctx, "r.task_id = ?", taskID)
}

func (r *RatingRepository) Stats(ctx context.Context, userID uuid.UUID) (*rating.Stats, error) {
	db := r.db.WithContext(ctx)

	var u userRecord
	err := db.Where("id = ?", userID.String()).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rating stats: %w", err)
	}

	var buckets []struct {
		Score int
		Count int
	}
	if err := db.Model(&ratingRecord{}).
		Select("score, COUNT(*) AS count").
		Where("reviewee_id = ?", u.ID).
		Group("score").
		Scan(&buckets).Error; err != nil {
		return nil, fmt.Errorf("get rating stats: %w", err)
	}

	var given int64
	if err := db.Model(&ratingRecord{}).Where("reviewer_id = ?", u.ID).Count(&given).Error; err != nil {
		return nil, fmt.Errorf("get rating stats: %w", err)
	}

	stats := &rating.Stats{
		UserID:       userID,
		Username:     u.Username,
		Reputation:   u.Reputation,
		GivenCount:   int(given),
		Distribution: make(map[int]int, rating.MaxScore),
	}
	for s := rating.MinScore; s <= rating.MaxScore; s++ {
		stats.Distribution[s] = 0
	}

	total := 0
	for _, b := range buckets {
		stats.Distribution[b.Score] = b.Count
		stats.ReceivedCount += b.Count
		total += b.Score * b.Count
	}
	if stats.ReceivedCount > 0 {
		stats.AverageReceived = float64(total) / float64(stats.ReceivedCount)
	}
	return stats, nil
}

func (r *RatingRepository) listDetails(ctx context.Context, where string, id uuid.UUID) ([]*rating.Detail, error) {
	var rows []detailRow
	err := r.db.WithContext(ctx).Table("ratings AS r").
		Select(`r.id, r.reviewer_id, r.reviewee_id, r.task_id, r.score, r.comment, r.created_at,
			reviewer.username AS reviewer_name, reviewee.username AS reviewee_name,
			t.company, t.pickup_place`).
		Joins("JOIN users reviewer ON r.reviewer_id = reviewer.id").
		Joins("JOIN users reviewee ON r.reviewee_id = reviewee.id").
		Joins("JOIN tasks t ON r.task_id = t.id").
		Where(where, id.String()).
		Order("r.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}

	details := make([]*rating.Detail, 0, len(rows))
	for _, row := range rows {
		rec := ratingRecord{
			ID:         row.ID,
			ReviewerID: row.ReviewerID,
			RevieweeID: row.RevieweeID,
			TaskID:     row.TaskID,
			Score:      row.Score,
			Comment:    row.Comment,
			CreatedAt:  row.CreatedAt,
		}
		rt, err := rec.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode rating: %w", err)
		}
		details = append(details, &rating.Detail{
			Rating:       *rt,
			ReviewerName: row.ReviewerName,
			RevieweeName: row.RevieweeName,
			Company:      row.Company,
			PickupPlace:  row.PickupPlace,
		})
	}
	return details, nil
}

func ensureUser(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&userRecord{}).Where("id = ?", id.String()).Count(&count).Error; err != nil {
		return fmt.Errorf("lock user: %w", err)
	}
	if count == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func updateReputation(tx *gorm.DB, userID uuid.UUID, recompute rating.RecomputeFunc) (float64, error) {
	var scores []int
	if err := tx.Model(&ratingRecord{}).Where("reviewee_id = ?", userID.String()).Pluck("score", &scores).Error; err != nil {
		return 0, fmt.Errorf("load scores: %w", err)
	}

	reputation := recompute(scores)
	if err := tx.Model(&userRecord{}).Where("id = ?", userID.String()).
		Updates(map[string]interface{}{"reputation": reputation, "updated_at": time.Now()}).Error; err != nil {
		return 0, fmt.Errorf("update reputation: %w", err)
	}
	return reputation, nil
}
