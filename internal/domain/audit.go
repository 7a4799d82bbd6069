package domain

import "time"

// AuditLog is one entry of a user's activity trail.
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

const (
	AuditCategoryAuth = "auth"
	AuditCategoryTask = "task"
)

const (
	AuditActionRegister = "register"
	AuditActionLogin    = "login"
	AuditActionLogout   = "logout"

	AuditActionTaskAdd    = "task_add"
	AuditActionTaskUpdate = "task_update"
	AuditActionTaskDelete = "task_delete"
	AuditActionTaskToggle = "task_toggle"
)
