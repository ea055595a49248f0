package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/parcel-pickup/internal/api/dto"
	"github.com/gocomet/parcel-pickup/internal/api/middleware"
	"github.com/gocomet/parcel-pickup/internal/service/auth"
	apperrors "github.com/gocomet/parcel-pickup/pkg/errors"
	"github.com/gocomet/parcel-pickup/pkg/logger"
)

// Register handles POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterInput
	if !h.bindJSON(c, &req) {
		return
	}

	session, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// Login handles POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	limitKey := "login:" + strings.ToLower(strings.TrimSpace(req.Username))

	if h.LoginLimiter != nil {
		allowed, err := h.LoginLimiter.Allow(ctx, limitKey)
		if err != nil {
			// throttling is best effort; logins continue without it
			h.Logger.Warn("Login limiter unavailable", logger.Err(err))
		} else if !allowed {
			h.Logger.Warn("Login throttled", logger.String("login", req.Username), logger.String("client_ip", c.ClientIP()))
			h.Monitor.RecordLoginThrottled()
			h.respondError(c, apperrors.ErrRateLimitExceeded)
			return
		}
	}

	session, err := h.Auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if h.LoginLimiter != nil {
		if err := h.LoginLimiter.Reset(ctx, limitKey); err != nil {
			h.Logger.Warn("Failed to reset login attempts", logger.Err(err))
		}
	}

	c.JSON(http.StatusOK, session)
}

// Profile handles GET /api/auth/profile
func (h *Handlers) Profile(c *gin.Context) {
	current, _ := middleware.CurrentUser(c)

	u, err := h.Auth.Profile(c.Request.Context(), current.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, u)
}

// ChangePassword handles PUT /api/auth/change-password
func (h *Handlers) ChangePassword(c *gin.Context) {
	current, _ := middleware.CurrentUser(c)

	var req auth.ChangePasswordInput
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.Auth.ChangePassword(c.Request.Context(), current.ID, req); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}
