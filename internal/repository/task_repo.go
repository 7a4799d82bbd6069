package repository

import (
	"context"
	"errors"
	"time"

	"todo_webapp/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, user_id, title, description, completed, priority, category, created_at, updated_at`

// TaskRepository is the remote task store. Every query is scoped to one user.
type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Insert(ctx context.Context, t domain.Task) (domain.Task, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO tasks (user_id, title, description, completed, priority, category, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()), COALESCE($8, $7, now()))
		 RETURNING `+taskColumns,
		t.UserID, t.Title, t.Description, t.Completed, string(t.Priority), string(t.Category),
		timeArg(t.CreatedAt), timeArg(t.UpdatedAt),
	)
	created, err := scanTask(row)
	if err != nil {
		return domain.Task{}, classify("insert task", err)
	}
	return created, nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, classify("list tasks", err)
	}
	defer rows.Close()

	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, classify("list tasks", err)
		}
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list tasks", err)
	}
	return res, nil
}

// Update writes the non-nil fields of p and stamps updated_at.
func (r *TaskRepository) Update(ctx context.Context, userID int64, id string, p domain.Patch, updatedAt time.Time) (domain.Task, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE tasks SET
			title       = COALESCE($3, title),
			description = COALESCE($4, description),
			completed   = COALESCE($5, completed),
			priority    = COALESCE($6, priority),
			category    = COALESCE($7, category),
			updated_at  = $8
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+taskColumns,
		id, userID, p.Title, p.Description, p.Completed, priorityArg(p.Priority), categoryArg(p.Category), updatedAt,
	)
	updated, err := scanTask(row)
	if err != nil {
		return domain.Task{}, classify("update task", err)
	}
	return updated, nil
}

func (r *TaskRepository) Delete(ctx context.Context, userID int64, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return classify("delete task", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("delete task")
	}
	return nil
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var t domain.Task
	var priority, category string
	if err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&t.Completed,
		&priority,
		&category,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return domain.Task{}, err
	}
	t.Priority = domain.Priority(priority)
	t.Category = domain.Category(category)
	return t, nil
}

// timeArg maps the zero time to NULL so the column default applies.
func timeArg(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func priorityArg(p *domain.Priority) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

func categoryArg(c *domain.Category) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}

// classify tags a database error with its domain kind.
func classify(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewError(domain.KindNotFound, op, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23514" {
		return domain.NewError(domain.KindInvalid, op, err)
	}
	return domain.NewError(domain.KindTransport, op, err)
}
