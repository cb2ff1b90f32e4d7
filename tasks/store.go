// Task store: the TaskStore interface and its PostgreSQL implementation.
// Every statement here includes an owner predicate; there is no way to reach
// a row through this store without naming its owner.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/taskman-go/apperror"
)

// TaskStore persists task records, always scoped to an owner id.
type TaskStore interface {
	Create(ctx context.Context, task *Task) (*Task, error)
	List(ctx context.Context, ownerID int, query ListQuery) ([]Task, error)
	Get(ctx context.Context, ownerID, taskID int) (*Task, error)
	Update(ctx context.Context, task *Task) (*Task, error)
	// Delete removes the task and returns the deleted record.
	Delete(ctx context.Context, ownerID, taskID int) (*Task, error)
}

// PgTaskStore is the PostgreSQL-backed TaskStore.
type PgTaskStore struct {
	db *pgxpool.Pool
}

// NewPgTaskStore creates a new PgTaskStore on top of the shared pool.
func NewPgTaskStore(db *pgxpool.Pool) *PgTaskStore {
	return &PgTaskStore{db: db}
}

// Create inserts a new task row with its owner already stamped.
func (s *PgTaskStore) Create(ctx context.Context, task *Task) (*Task, error) {
	query := `INSERT INTO tasks (description, completed, owner)
              VALUES ($1, $2, $3)
              RETURNING id, created_at, updated_at`
	err := s.db.QueryRow(ctx, query, task.Description, task.Completed, task.Owner).
		Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to create task", err)
	}
	return task, nil
}

// List returns the owner's tasks, AND-combining the optional completed filter
// with the mandatory owner predicate. The sort field has been allow-listed by
// the service before it reaches this query, which is what makes the direct
// identifier interpolation safe.
func (s *PgTaskStore) List(ctx context.Context, ownerID int, q ListQuery) ([]Task, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, description, completed, owner, created_at, updated_at
                    FROM tasks WHERE owner = $1`)
	args := []interface{}{ownerID}

	if q.Completed != nil {
		args = append(args, *q.Completed)
		fmt.Fprintf(&sb, " AND completed = $%d", len(args))
	}

	sortField := q.SortField
	if sortField == "" {
		sortField = "created_at"
	}
	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s", sortField, direction)

	if q.Limit != nil {
		args = append(args, *q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if q.Skip != 0 {
		args = append(args, q.Skip)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list tasks", err)
	}
	defer rows.Close()

	result := []Task{}
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Description, &t.Completed, &t.Owner, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan task", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read tasks", err)
	}
	return result, nil
}

// Get fetches one task by id under the given owner. A row that exists but
// belongs to someone else yields the same NotFoundError as a missing row.
func (s *PgTaskStore) Get(ctx context.Context, ownerID, taskID int) (*Task, error) {
	var t Task
	query := `SELECT id, description, completed, owner, created_at, updated_at
              FROM tasks WHERE id = $1 AND owner = $2`
	err := s.db.QueryRow(ctx, query, taskID, ownerID).
		Scan(&t.ID, &t.Description, &t.Completed, &t.Owner, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("task not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get task", err)
	}
	return &t, nil
}

// Update persists the task's mutable fields, scoped to its owner.
func (s *PgTaskStore) Update(ctx context.Context, task *Task) (*Task, error) {
	query := `UPDATE tasks
              SET description = $1, completed = $2, updated_at = now()
              WHERE id = $3 AND owner = $4
              RETURNING updated_at`
	err := s.db.QueryRow(ctx, query, task.Description, task.Completed, task.ID, task.Owner).
		Scan(&task.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("task not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to update task", err)
	}
	return task, nil
}

// Delete removes the task under the given owner and returns the deleted record.
func (s *PgTaskStore) Delete(ctx context.Context, ownerID, taskID int) (*Task, error) {
	var t Task
	query := `DELETE FROM tasks WHERE id = $1 AND owner = $2
              RETURNING id, description, completed, owner, created_at, updated_at`
	err := s.db.QueryRow(ctx, query, taskID, ownerID).
		Scan(&t.ID, &t.Description, &t.Completed, &t.Owner, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("task not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to delete task", err)
	}
	return &t, nil
}
