package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/logger"
)

// AuditStore persists activity entries.
type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error)
}

// RequestInfo is the caller metadata attached to auth entries.
type RequestInfo struct {
	IP        string
	UserAgent string
}

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// AuditService handles audit logging. A nil *AuditService drops every entry.
type AuditService struct {
	repo AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, userID int64, action, category string, details map[string]interface{}) {
	s.LogWithRequest(ctx, userID, action, category, RequestInfo{}, details)
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, userID int64, action, category string, req RequestInfo, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	if details == nil {
		details = map[string]interface{}{}
	}
	log := &domain.AuditLog{
		UserID:    userID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        req.IP,
		UserAgent: req.UserAgent,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogTask records a successful task mutation.
func (s *AuditService) LogTask(ctx context.Context, userID int64, action, taskID string) {
	details := map[string]interface{}{}
	if taskID != "" {
		details["task_id"] = taskID
	}
	s.Log(ctx, userID, action, domain.AuditCategoryTask, details)
}

// Recent returns the user's newest entries. limit is clamped to [1, 200], 0 means 50.
func (s *AuditService) Recent(ctx context.Context, sess domain.Session, limit int) ([]*domain.AuditLog, error) {
	if !sess.Authenticated() {
		return nil, domain.AuthRequired("activity")
	}
	if s == nil || s.repo == nil {
		return []*domain.AuditLog{}, nil
	}
	switch {
	case limit <= 0:
		limit = defaultActivityLimit
	case limit > maxActivityLimit:
		limit = maxActivityLimit
	}
	return s.repo.GetByUserID(ctx, sess.UserID, limit)
}

// MemoryAuditStore keeps the newest entries per user in process memory.
type MemoryAuditStore struct {
	mu      sync.Mutex
	perUser int
	nextID  int64
	logs    map[int64][]*domain.AuditLog
	now     func() time.Time
}

func NewMemoryAuditStore(perUser int) *MemoryAuditStore {
	if perUser <= 0 {
		perUser = maxActivityLimit
	}
	return &MemoryAuditStore{perUser: perUser, logs: make(map[int64][]*domain.AuditLog), now: time.Now}
}

func (m *MemoryAuditStore) Create(_ context.Context, log *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	entry := *log
	entry.ID = m.nextID
	entry.CreatedAt = m.now()

	list := append(m.logs[log.UserID], &entry)
	if len(list) > m.perUser {
		list = list[len(list)-m.perUser:]
	}
	m.logs[log.UserID] = list
	return nil
}

func (m *MemoryAuditStore) GetByUserID(_ context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.logs[userID]
	out := make([]*domain.AuditLog, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
