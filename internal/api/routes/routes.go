package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/gocomet/parcel-pickup/internal/api/handlers"
	"github.com/gocomet/parcel-pickup/internal/api/middleware"
	"github.com/gocomet/parcel-pickup/internal/validation"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, nrApp *newrelic.Application) {
	validation.RegisterGin()

	// Add New Relic middleware if enabled
	if nrApp != nil {
		r.Use(nrgin.Middleware(nrApp))
	}

	requireAuth := middleware.Auth(h.Auth, h.Logger)
	optionalAuth := middleware.OptionalAuth(h.Auth)

	// Health check
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.GET("/profile", requireAuth, h.Profile)
			authGroup.PUT("/change-password", requireAuth, h.ChangePassword)
		}

		tasks := api.Group("/tasks")
		{
			tasks.POST("", requireAuth, h.PublishTask)
			tasks.GET("/available", optionalAuth, h.ListAvailableTasks)
			tasks.GET("/published", requireAuth, h.ListPublishedTasks)
			tasks.GET("/accepted", requireAuth, h.ListAcceptedTasks)
			tasks.GET("/:id", optionalAuth, h.GetTask)
			tasks.POST("/:id/accept", requireAuth, h.AcceptTask)
			tasks.POST("/:id/complete", requireAuth, h.CompleteTask)
			tasks.POST("/:id/cancel", requireAuth, h.CancelTask)
			tasks.DELETE("/:id", requireAuth, h.DeleteTask)
		}

		ratings := api.Group("/ratings")
		{
			ratings.POST("", requireAuth, h.AddRating)
			ratings.GET("/my-ratings", requireAuth, h.MyRatings)
			ratings.GET("/user/:userId", h.UserRatings)
			ratings.GET("/task/:taskId", h.TaskRatings)
			ratings.GET("/stats/:userId", h.UserStats)
			ratings.DELETE("/:id", requireAuth, h.DeleteRating)
		}
	}
}
