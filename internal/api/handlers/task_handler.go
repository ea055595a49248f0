package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/parcel-pickup/internal/api/dto"
	"github.com/gocomet/parcel-pickup/internal/api/middleware"
	"github.com/gocomet/parcel-pickup/internal/domain/task"
	"github.com/gocomet/parcel-pickup/internal/service/tasks"
	"github.com/gocomet/parcel-pickup/internal/validation"
	"github.com/gocomet/parcel-pickup/pkg/cache"
	apperrors "github.com/gocomet/parcel-pickup/pkg/errors"
	"github.com/gocomet/parcel-pickup/pkg/logger"
	"github.com/google/uuid"
)

const (
	idempotencyHeader    = "Idempotency-Key"
	maxIdempotencyKeyLen = 255
)

// PublishTask handles POST /api/tasks
func (h *Handlers) PublishTask(c *gin.Context) {
	current, _ := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	var req tasks.PublishInput
	if !h.bindJSON(c, &req) {
		return
	}

	// Claim the Idempotency-Key, or replay the response stored under it
	var cacheKey string
	key := c.GetHeader(idempotencyHeader)
	if len(key) > maxIdempotencyKeyLen {
		h.respondError(c, apperrors.BadRequest("Idempotency-Key must be at most 255 characters", nil))
		return
	}
	if key != "" && h.Idempotency != nil {
		scoped := current.ID.String() + ":" + key
		stored, claimed, err := h.Idempotency.Reserve(ctx, scoped)
		switch {
		case errors.Is(err, cache.ErrInProgress):
			h.respondError(c, apperrors.ErrIdempotencyInProgress)
			return
		case err != nil:
			h.Logger.Warn("Idempotency reservation failed", logger.Err(err))
		case claimed:
			cacheKey = scoped
		default:
			h.Logger.Info("Returning cached publish response", logger.String("idempotency_key", key))
			c.Header("Idempotent-Replayed", "true")
			c.Data(http.StatusCreated, "application/json; charset=utf-8", stored)
			return
		}
	}

	t, err := h.Tasks.Publish(ctx, current.ID, req)
	if err != nil {
		h.releaseIdempotencyKey(ctx, cacheKey)
		h.respondError(c, err)
		return
	}

	body, err := json.Marshal(dto.NewTaskResponse(t, current.ID))
	if err != nil {
		h.releaseIdempotencyKey(ctx, cacheKey)
		h.respondError(c, err)
		return
	}

	if cacheKey != "" {
		if err := h.Idempotency.Complete(ctx, cacheKey, body); err != nil {
			h.Logger.Warn("Failed to cache publish response", logger.Err(err))
		}
	}

	c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
}

func (h *Handlers) releaseIdempotencyKey(ctx context.Context, cacheKey string) {
	if cacheKey == "" {
		return
	}
	if err := h.Idempotency.Release(ctx, cacheKey); err != nil {
		h.Logger.Warn("Failed to release idempotency key", logger.Err(err))
	}
}

// ListAvailableTasks handles GET /api/tasks/available
func (h *Handlers) ListAvailableTasks(c *gin.Context) {
	list, err := h.Tasks.ListAvailable(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTaskList(list, viewerID(c)))
}

// ListPublishedTasks handles GET /api/tasks/published
func (h *Handlers) ListPublishedTasks(c *gin.Context) {
	current, _ := middleware.CurrentUser(c)

	list, err := h.Tasks.ListPublished(c.Request.Context(), current.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTaskList(list, current.ID))
}

// ListAcceptedTasks handles GET /api/tasks/accepted
func (h *Handlers) ListAcceptedTasks(c *gin.Context) {
	current, _ := middleware.CurrentUser(c)

	list, err := h.Tasks.ListAccepted(c.Request.Context(), current.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTaskList(list, current.ID))
}

// GetTask handles GET /api/tasks/:id
func (h *Handlers) GetTask(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	t, err := h.Tasks.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTaskResponse(t, viewerID(c)))
}

// AcceptTask handles POST /api/tasks/:id/accept
func (h *Handlers) AcceptTask(c *gin.Context) {
	h.transition(c, func(id, actor uuid.UUID) (*task.Task, error) {
		return h.Tasks.Accept(c.Request.Context(), id, actor)
	})
}

// CompleteTask handles POST /api/tasks/:id/complete
func (h *Handlers) CompleteTask(c *gin.Context) {
	h.transition(c, func(id, actor uuid.UUID) (*task.Task, error) {
		return h.Tasks.Complete(c.Request.Context(), id, actor)
	})
}

// CancelTask handles POST /api/tasks/:id/cancel
func (h *Handlers) CancelTask(c *gin.Context) {
	var req dto.CancelTaskRequest
	if !h.bindJSON(c, &req) {
		return
	}
	role, err := task.ParseRole(req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.transition(c, func(id, actor uuid.UUID) (*task.Task, error) {
		return h.Tasks.Cancel(c.Request.Context(), id, actor, role)
	})
}

// DeleteTask handles DELETE /api/tasks/:id
func (h *Handlers) DeleteTask(c *gin.Context) {
	current, _ := middleware.CurrentUser(c)
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.Tasks.Delete(c.Request.Context(), id, current.ID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

func (h *Handlers) transition(c *gin.Context, apply func(id, actor uuid.UUID) (*task.Task, error)) {
	current, _ := middleware.CurrentUser(c)
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	t, err := apply(id, current.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTaskResponse(t, current.ID))
}

// pathID parses a UUID path parameter
func (h *Handlers) pathID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.respondError(c, validation.Field(param, "must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// viewerID returns the caller's ID, or uuid.Nil for anonymous requests
func viewerID(c *gin.Context) uuid.UUID {
	if u, ok := middleware.CurrentUser(c); ok {
		return u.ID
	}
	return uuid.Nil
}
