package repository

import (
	"context"
	"encoding/json"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	detailsJSON, err := json.Marshal(log.Details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO audit_logs (user_id, action, category, details, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, log.UserID, log.Action, log.Category, detailsJSON, log.IP, log.UserAgent)
	return err
}

// GetByUserID returns the newest audit logs for a user
func (r *AuditRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, action, category, details, COALESCE(ip, ''), COALESCE(user_agent, ''), created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*domain.AuditLog{}
	for rows.Next() {
		var l domain.AuditLog
		var details []byte
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.Category, &details, &l.IP, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Details = decodeDetails(details)
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// decodeDetails never fails; unreadable details come back as an empty map.
func decodeDetails(raw []byte) map[string]interface{} {
	details := make(map[string]interface{})
	if len(raw) == 0 {
		return details
	}
	if err := json.Unmarshal(raw, &details); err != nil {
		logger.Warn("audit details unreadable", "error", err)
		return make(map[string]interface{})
	}
	if details == nil {
		// JSON null
		return make(map[string]interface{})
	}
	return details
}
