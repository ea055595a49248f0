package task

import "errors"

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrVersionConflict     = errors.New("task was modified concurrently")
	ErrMissingDetails      = errors.New("company, pickup place and pickup code are required")
	ErrInvalidReward       = errors.New("reward must be between 0.01 and 99999999.99 with at most two decimal places")
	ErrDeadlineNotInFuture = errors.New("deadline must be in the future")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrTaskAlreadyAccepted = errors.New("task already accepted")
	ErrTaskNotPending      = errors.New("task is not pending")
	ErrTaskExpired         = errors.New("task deadline has passed")
	ErrSelfAccept          = errors.New("cannot accept your own task")
	ErrNotPublisher        = errors.New("only the publisher may perform this action")
	ErrNotTaker            = errors.New("only the taker may perform this action")
	ErrInvalidRole         = errors.New("role must be publisher or taker")
)
