package handlers

import (
	"context"

	"github.com/gocomet/parcel-pickup/internal/service/auth"
	"github.com/gocomet/parcel-pickup/internal/service/ratings"
	"github.com/gocomet/parcel-pickup/internal/service/tasks"
	"github.com/gocomet/parcel-pickup/pkg/logger"
	"github.com/gocomet/parcel-pickup/pkg/monitoring"
)

// AttemptLimiter throttles repeated attempts per key
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// ResponseStore keeps responses for Idempotency-Key replay.
// Reserve returns cache.ErrInProgress while another request owns the key.
type ResponseStore interface {
	Reserve(ctx context.Context, key string) (stored []byte, claimed bool, err error)
	Complete(ctx context.Context, key string, body []byte) error
	Release(ctx context.Context, key string) error
}

// Handlers holds all handler dependencies
type Handlers struct {
	Auth    *auth.Service
	Tasks   *tasks.Service
	Ratings *ratings.Service
	Logger  *logger.Logger
	Monitor *monitoring.NewRelicApp

	// Optional; nil disables login throttling and publish replay
	LoginLimiter AttemptLimiter
	Idempotency  ResponseStore

	// Ping reports storage health; nil means always healthy
	Ping    func(ctx context.Context) error
	Version string
}

// NewHandlers creates a new Handlers instance
func NewHandlers(authSvc *auth.Service, taskSvc *tasks.Service, ratingSvc *ratings.Service, log *logger.Logger, monitor *monitoring.NewRelicApp) *Handlers {
	return &Handlers{
		Auth:    authSvc,
		Tasks:   taskSvc,
		Ratings: ratingSvc,
		Logger:  log,
		Monitor: monitor,
	}
}
