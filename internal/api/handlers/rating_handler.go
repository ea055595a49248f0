package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/parcel-pickup/internal/api/dto"
	"github.com/gocomet/parcel-pickup/internal/api/middleware"
	"github.com/gocomet/parcel-pickup/internal/service/ratings"
)

// AddRating handles POST /api/ratings
func (h *Handlers) AddRating(c *gin.Context) {
	current, _ := middleware.CurrentUser(c)

	var req ratings.AddInput
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.Ratings.Add(c.Request.Context(), current.ID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// MyRatings handles GET /api/ratings/my-ratings
func (h *Handlers) MyRatings(c *gin.Context) {
	current, _ := middleware.CurrentUser(c)

	res, err := h.Ratings.ListForUser(c.Request.Context(), current.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UserRatings handles GET /api/ratings/user/:userId
func (h *Handlers) UserRatings(c *gin.Context) {
	id, ok := h.pathID(c, "userId")
	if !ok {
		return
	}

	res, err := h.Ratings.ListForUser(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// TaskRatings handles GET /api/ratings/task/:taskId
func (h *Handlers) TaskRatings(c *gin.Context) {
	id, ok := h.pathID(c, "taskId")
	if !ok {
		return
	}

	res, err := h.Ratings.ListForTask(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UserStats handles GET /api/ratings/stats/:userId
func (h *Handlers) UserStats(c *gin.Context) {
	id, ok := h.pathID(c, "userId")
	if !ok {
		return
	}

	stats, err := h.Ratings.Stats(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// DeleteRating handles DELETE /api/ratings/:id
func (h *Handlers) DeleteRating(c *gin.Context) {
	current, _ := middleware.CurrentUser(c)
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	reputation, err := h.Ratings.Delete(c.Request.Context(), current.ID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DeleteRatingResponse{Message: "Rating deleted", Reputation: reputation})
}
