package http

import (
	"sync"
	"time"

	"todo_webapp/internal/http/handlers"
	"todo_webapp/internal/http/middleware"
	"todo_webapp/internal/ws"

	"github.com/gin-gonic/gin"
)

// Deps is everything the router needs. Handler.Auth nil selects local mode.
type Deps struct {
	Handler       *handlers.Handler
	Health        *handlers.HealthHandler
	Authenticator middleware.Authenticator
	Hub           *ws.Hub
	AllowedOrigin string

	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

var validatorsOnce sync.Once

func RegisterRoutes(r *gin.Engine, d Deps) {
	validatorsOnce.Do(registerValidators)

	r.Use(middleware.RequestLogger(), middleware.Metrics())

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(d.APIRateLimit, d.APIRateWindow))
	registerAPIRoutes(v1, d)

	if d.Hub != nil {
		r.GET("/ws", ws.HandleWS(d.Hub, d.Authenticator, d.AllowedOrigin))
	}
}

func registerAPIRoutes(api *gin.RouterGroup, d Deps) {
	h := d.Handler
	requireUser := middleware.JWT(d.Authenticator)
	optionalUser := middleware.OptionalJWT(d.Authenticator)

	// Auth
	if h.Auth != nil {
		auth := api.Group("/auth")
		auth.Use(middleware.RateLimit(d.AuthRateLimit, d.AuthRateWindow))
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", requireUser, h.Logout)
	}

	api.GET("/me", requireUser, h.Me)
	api.GET("/me/activity", requireUser, h.Activity)

	// Tasks. Anonymous callers get an empty list and failed mutations.
	writes := middleware.UserRateLimit(d.APIRateLimit, d.APIRateWindow)
	tasks := api.Group("/tasks")
	tasks.Use(optionalUser)
	{
		tasks.GET("", h.ListTasks)
		tasks.GET("/pending", h.PendingTasks)
		tasks.POST("", writes, h.CreateTask)
		tasks.PATCH("/:id", writes, h.UpdateTask)
		tasks.DELETE("/:id", writes, h.DeleteTask)
		tasks.POST("/:id/toggle", writes, h.ToggleTask)
	}
}
