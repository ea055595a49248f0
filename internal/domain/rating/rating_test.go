package rating

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestNew_Validation tests score, comment and self-rating checks
func TestNew_Validation(t *testing.T) {
	reviewer, reviewee, taskID := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name     string
		reviewee uuid.UUID
		score    int
		comment  string
		wantErr  error
	}{
		{name: "Valid rating", reviewee: reviewee, score: 4, comment: "on time"},
		{name: "Score too low", reviewee: reviewee, score: 0, wantErr: ErrInvalidScore},
		{name: "Score too high", reviewee: reviewee, score: 6, wantErr: ErrInvalidScore},
		{name: "Self rating", reviewee: reviewer, score: 5, wantErr: ErrSelfRating},
		{name: "Comment too long", reviewee: reviewee, score: 3, comment: strings.Repeat("好", 501), wantErr: ErrCommentTooLong},
		{name: "Comment at limit", reviewee: reviewee, score: 3, comment: strings.Repeat("好", 500)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(reviewer, tt.reviewee, taskID, tt.score, tt.comment, time.Now())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.score, r.Score)
			assert.NotEqual(t, uuid.Nil, r.ID)
		})
	}
}

// TestReputation_Mean tests the recompute function
func TestReputation_Mean(t *testing.T) {
	recompute := Reputation(5.0)

	assert.Equal(t, 5.0, recompute(nil), "no ratings falls back to default")
	assert.Equal(t, 4.0, recompute([]int{4}))
	assert.InDelta(t, 3.6667, recompute([]int{5, 4, 2}), 0.0001)
	assert.Equal(t, 1.0, recompute([]int{1, 1, 1}))
}
