package domain

// Severity of a user-facing notification.
type Severity string

const (
	SeverityDefault     Severity = "default"
	SeverityDestructive Severity = "destructive"
)

// Notification is a toast-style message: fire and forget, never queried back.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"variant"`
}

func ErrorNotification(err error) Notification {
	return Notification{Title: "Error", Description: err.Error(), Severity: SeverityDestructive}
}
