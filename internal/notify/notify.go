// Package notify delivers user-facing outcome messages. Delivery is fire and forget.
package notify

import (
	"context"
	"sync"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/logger"
)

type Notifier interface {
	Notify(ctx context.Context, userID int64, n domain.Notification)
}

// EventPublisher tells connected clients their task collection went stale.
type EventPublisher interface {
	PublishInvalidate(ctx context.Context, userID int64)
}

// Log writes notifications to the structured log.
type Log struct{}

func (Log) Notify(ctx context.Context, userID int64, n domain.Notification) {
	l := logger.WithContext(ctx)
	if n.Severity == domain.SeverityDestructive {
		l.Warn("notification", "user_id", userID, "title", n.Title, "description", n.Description)
		return
	}
	l.Info("notification", "user_id", userID, "title", n.Title, "description", n.Description)
}

// Multi fans a notification out to every notifier.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, userID int64, n domain.Notification) {
	for _, target := range m {
		target.Notify(ctx, userID, n)
	}
}

// Sent is one recorded notification.
type Sent struct {
	UserID       int64
	Notification domain.Notification
}

// Recorder keeps every notification and invalidation it receives.
type Recorder struct {
	mu            sync.Mutex
	sent          []Sent
	invalidations []int64
}

func (r *Recorder) Notify(_ context.Context, userID int64, n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{UserID: userID, Notification: n})
}

func (r *Recorder) PublishInvalidate(_ context.Context, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidations = append(r.invalidations, userID)
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *Recorder) Invalidations() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, len(r.invalidations))
	copy(out, r.invalidations)
	return out
}
