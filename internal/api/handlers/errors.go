package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/parcel-pickup/internal/domain/rating"
	"github.com/gocomet/parcel-pickup/internal/domain/task"
	"github.com/gocomet/parcel-pickup/internal/domain/user"
	"github.com/gocomet/parcel-pickup/internal/service/auth"
	"github.com/gocomet/parcel-pickup/internal/validation"
	apperrors "github.com/gocomet/parcel-pickup/pkg/errors"
	"github.com/gocomet/parcel-pickup/pkg/logger"
)

type errorMapping struct {
	target error
	build  func(message string, err error) *apperrors.AppError
}

// coded builds errors with a domain-specific code
func coded(code string, status int) func(string, error) *apperrors.AppError {
	return func(message string, err error) *apperrors.AppError {
		return apperrors.NewAppError(code, message, status, err)
	}
}

// domainErrors maps sentinel errors to stable response codes. The sentinel text
// is safe to show to clients and becomes the message.
var domainErrors = []errorMapping{
	{user.ErrUserNotFound, apperrors.NotFound},
	{user.ErrDuplicateUser, coded("USER_EXISTS", http.StatusConflict)},
	{auth.ErrWrongPassword, coded("WRONG_PASSWORD", http.StatusBadRequest)},

	{task.ErrTaskNotFound, apperrors.NotFound},
	{task.ErrTaskAlreadyAccepted, coded("TASK_ALREADY_ACCEPTED", http.StatusConflict)},
	{task.ErrTaskNotPending, coded("INVALID_STATUS_TRANSITION", http.StatusConflict)},
	{task.ErrInvalidTransition, coded("INVALID_STATUS_TRANSITION", http.StatusConflict)},
	{task.ErrTaskExpired, coded("TASK_EXPIRED", http.StatusConflict)},
	{task.ErrSelfAccept, coded("SELF_ACCEPT", http.StatusBadRequest)},
	{task.ErrNotPublisher, apperrors.Forbidden},
	{task.ErrNotTaker, apperrors.Forbidden},
	{task.ErrVersionConflict, coded("CONCURRENT_MODIFICATION", http.StatusConflict)},

	{rating.ErrRatingNotFound, apperrors.NotFound},
	{rating.ErrSelfRating, coded("SELF_RATING", http.StatusBadRequest)},
	{rating.ErrDuplicateRating, coded("DUPLICATE_RATING", http.StatusConflict)},
	{rating.ErrTaskNotComplete, coded("TASK_NOT_COMPLETED", http.StatusBadRequest)},
	{rating.ErrNotParticipant, apperrors.Forbidden},
	{rating.ErrNotReviewer, apperrors.Forbidden},
}

// fieldErrors are domain validation failures reported against one input field
var fieldErrors = []struct {
	target error
	field  string
}{
	{task.ErrMissingDetails, "company"},
	{task.ErrInvalidReward, "reward"},
	{task.ErrDeadlineNotInFuture, "deadline"},
	{task.ErrInvalidRole, "role"},
	{rating.ErrInvalidScore, "score"},
	{rating.ErrCommentTooLong, "comment"},
}

// toAppError translates err into the response envelope
func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperrors.WithCause(apperrors.ErrInvalidCredentials, err)
	case errors.Is(err, auth.ErrInvalidToken):
		return apperrors.WithCause(apperrors.ErrInvalidToken, err)
	}

	for _, fe := range fieldErrors {
		if errors.Is(err, fe.target) {
			return validation.Field(fe.field, err.Error())
		}
	}
	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			return m.build(err.Error(), err)
		}
	}

	return apperrors.Internal("An unexpected error occurred", err)
}

// respondError writes err as JSON, logging anything that is not a client error
func (h *Handlers) respondError(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.Logger.Error("Request failed",
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Err(err),
		)
	}
	c.AbortWithStatusJSON(appErr.Status, appErr)
}

// bindJSON decodes the body and reports shape errors as validation failures
func (h *Handlers) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.respondError(c, validation.FromError(err))
		return false
	}
	return true
}
