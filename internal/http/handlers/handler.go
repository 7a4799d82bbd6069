package handlers

import (
	"net/http"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler holds the services behind the API. Auth is nil in local mode.
type Handler struct {
	Tasks *service.TaskSync
	Auth  *service.AuthService
	Audit *service.AuditService
	// LocalUser answers /me when there is no account system.
	LocalUser *domain.User
}

func NewHandler(tasks *service.TaskSync, auth *service.AuthService, audit *service.AuditService) *Handler {
	return &Handler{Tasks: tasks, Auth: auth, Audit: audit}
}

// getUserID reads the user_id set by the auth middleware
func getUserID(c interface{ Get(any) (any, bool) }) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// session turns the request into a Session. No user_id means anonymous.
func session(c *gin.Context) domain.Session {
	if id, ok := getUserID(c); ok {
		return domain.NewSession(id)
	}
	return domain.Anonymous()
}

func requestInfo(c *gin.Context) service.RequestInfo {
	return service.RequestInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindAuthRequired:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalid:
		return http.StatusBadRequest
	case domain.KindSerialization:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	c.JSON(statusFor(kind), gin.H{"error": err.Error(), "kind": kind.String()})
}
