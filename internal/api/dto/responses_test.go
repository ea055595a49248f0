package dto

import (
	"testing"
	"time"

	"github.com/gocomet/parcel-pickup/internal/domain/task"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewTaskResponse_PickupCodeVisibility tests who sees the pickup code
func TestNewTaskResponse_PickupCodeVisibility(t *testing.T) {
	publisher, taker, stranger := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	tk, err := task.New(publisher, "ZTO", "Library", "7-7-7", 8, now.Add(time.Hour), now)
	require.NoError(t, err)
	require.NoError(t, task.Apply(tk, task.EventAccept, taker, task.RoleCandidate, now))

	tests := []struct {
		name    string
		viewer  uuid.UUID
		visible bool
	}{
		{"publisher", publisher, true},
		{"taker", taker, true},
		{"stranger", stranger, false},
		{"anonymous", uuid.Nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewTaskResponse(tk, tt.viewer)
			if tt.visible {
				assert.Equal(t, "7-7-7", resp.PickupCode)
			} else {
				assert.Empty(t, resp.PickupCode)
			}
			assert.Equal(t, task.StatusAccepted, resp.Status)
		})
	}
}
