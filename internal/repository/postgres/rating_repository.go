package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gocomet/parcel-pickup/internal/domain/rating"
	"github.com/gocomet/parcel-pickup/internal/domain/user"
	"github.com/google/uuid"
)

const ratingDetailQuery = `
	SELECT r.id, r.reviewer_id, r.reviewee_id, r.task_id, r.score, r.comment, r.created_at,
	       reviewer.username, reviewee.username, t.company, t.pickup_place
	FROM ratings r
	JOIN users reviewer ON r.reviewer_id = reviewer.id
	JOIN users reviewee ON r.reviewee_id = reviewee.id
	JOIN tasks t ON r.task_id = t.id
`

// RatingRepository stores ratings and maintains user reputation in PostgreSQL
type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

func (r *RatingRepository) CreateAndRecompute(ctx context.Context, rt *rating.Rating, recompute rating.RecomputeFunc) (float64, error) {
	var reputation float64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockUser(ctx, tx, rt.RevieweeID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO ratings (id, reviewer_id, reviewee_id, task_id, score, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, rt.ID, rt.ReviewerID, rt.RevieweeID, rt.TaskID, rt.Score, rt.Comment, rt.CreatedAt)
		if isUniqueViolation(err) {
			return rating.ErrDuplicateRating
		}
		if err != nil {
			return fmt.Errorf("insert rating: %w", err)
		}

		reputation, err = updateReputation(ctx, tx, rt.RevieweeID, recompute)
		return err
	})
	return reputation, err
}

func (r *RatingRepository) DeleteAndRecompute(ctx context.Context, rt *rating.Rating, recompute rating.RecomputeFunc) (float64, error) {
	var reputation float64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockUser(ctx, tx, rt.RevieweeID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM ratings WHERE id = $1 AND reviewer_id = $2`, rt.ID, rt.ReviewerID)
		if err != nil {
			return fmt.Errorf("delete rating: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete rating: %w", err)
		}
		if n == 0 {
			return rating.ErrRatingNotFound
		}

		reputation, err = updateReputation(ctx, tx, rt.RevieweeID, recompute)
		return err
	})
	return reputation, err
}

func (r *RatingRepository) GetByID(ctx context.Context, id uuid.UUID) (*rating.Rating, error) {
	var rt rating.Rating
	err := r.db.QueryRowContext(ctx, `
		SELECT id, reviewer_id, reviewee_id, task_id, score, comment, created_at
		FROM ratings WHERE id = $1
	`, id).Scan(&rt.ID, &rt.ReviewerID, &rt.RevieweeID, &rt.TaskID, &rt.Score, &rt.Comment, &rt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rating.ErrRatingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return &rt, nil
}

func (r *RatingRepository) ListReceived(ctx context.Context, userID uuid.UUID) ([]*rating.Detail, error) {
	return r.listDetails(ctx, ratingDetailQuery+` WHERE r.reviewee_id = $1 ORDER BY r.created_at DESC`, userID)
}

func (r *RatingRepository) ListGiven(ctx context.Context, userID uuid.UUID) ([]*rating.Detail, error) {
	return r.listDetails(ctx, ratingDetailQuery+` WHERE r.reviewer_id = $1 ORDER BY r.created_at DESC`, userID)
}

func (r *RatingRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*rating.Detail, error) {
	return r.listDetails(ctx, ratingDetailQuery+` WHERE r.task_id = $1 ORDER BY r.created_at DESC`, taskID)
}

func (r *RatingRepository) Stats(ctx context.Context, userID uuid.UUID) (*rating.Stats, error) {
	var (
		s      rating.Stats
		counts [rating.MaxScore]int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, username, reputation, received_count, given_count, average_received,
		       score_1, score_2, score_3, score_4, score_5
		FROM user_rating_stats WHERE user_id = $1
	`, userID).Scan(&s.UserID, &s.Username, &s.Reputation, &s.ReceivedCount, &s.GivenCount, &s.AverageReceived,
		&counts[0], &counts[1], &counts[2], &counts[3], &counts[4])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rating stats: %w", err)
	}

	s.Distribution = make(map[int]int, rating.MaxScore)
	for i, c := range counts {
		s.Distribution[i+1] = c
	}
	return &s, nil
}

func (r *RatingRepository) listDetails(ctx context.Context, query string, id uuid.UUID) ([]*rating.Detail, error) {
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	details := make([]*rating.Detail, 0)
	for rows.Next() {
		var d rating.Detail
		if err := rows.Scan(&d.ID, &d.ReviewerID, &d.RevieweeID, &d.TaskID, &d.Score, &d.Comment, &d.CreatedAt,
			&d.ReviewerName, &d.RevieweeName, &d.Company, &d.PickupPlace); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		details = append(details, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return details, nil
}

func (r *RatingRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// lockUser serializes reputation writers for one reviewee
func lockUser(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	var locked uuid.UUID
	err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return user.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}

func updateReputation(ctx context.Context, tx *sql.Tx, userID uuid.UUID, recompute rating.RecomputeFunc) (float64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT score FROM ratings WHERE reviewee_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("load scores: %w", err)
	}
	scores := make([]int, 0)
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("load scores: %w", err)
	}

	reputation := recompute(scores)
	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET reputation = $1, updated_at = NOW() WHERE id = $2
	`, reputation, userID); err != nil {
		return 0, fmt.Errorf("update reputation: %w", err)
	}
	return reputation, nil
}
