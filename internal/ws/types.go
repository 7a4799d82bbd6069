package ws

import "todo_webapp/internal/domain"

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady        = "ready"
	MsgPong         = "pong"
	MsgNotification = "notification"
	MsgInvalidate   = "invalidate"
)

// Envelope is every frame the server writes.
type Envelope struct {
	Type         string               `json:"type"`
	Notification *domain.Notification `json:"notification,omitempty"`
}

type inbound struct {
	Type string `json:"type"`
}
