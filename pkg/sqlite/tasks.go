package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

const taskColumns = `id, org, volunteer_id, unique_code, title, description, category, status, duration_minutes, completed_at, created_at`

func scanTask(row scanner) (*db.Task, error) {
	var t db.Task
	var org, status, createdAt string
	var completedAt sql.NullString
	if err := row.Scan(&t.ID, &org, &t.VolunteerID, &t.UniqueCode, &t.Title, &t.Description,
		&t.Category, &status, &t.DurationMinutes, &completedAt, &createdAt); err != nil {
		return nil, err
	}
	t.Org = model.Org(org)
	t.Status = model.Status(status)

	var err error
	if t.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTasks(rows *sql.Rows) ([]db.Task, error) {
	defer rows.Close()

	var tasks []db.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// InsertTask inserts a new task record
func (d *DB) InsertTask(ctx context.Context, task *db.Task) error {
	createdAt := time.Now().UTC()

	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO tasks (id, org, volunteer_id, unique_code, title, description, category, status, duration_minutes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, string(task.Org), task.VolunteerID, task.UniqueCode, task.Title, task.Description,
		task.Category, string(task.Status), task.DurationMinutes, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	task.CreatedAt = createdAt
	return nil
}

// GetTask retrieves a task by id
func (d *DB) GetTask(ctx context.Context, id string) (*db.Task, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = ?
	`, id)

	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", notFound(err))
	}
	return t, nil
}

// UpdateTask writes the mutable fields of a task
func (d *DB) UpdateTask(ctx context.Context, task *db.Task) error {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, duration_minutes = ?, completed_at = ?
		WHERE id = ?
	`, string(task.Status), task.DurationMinutes, nullTime(task.CompletedAt), task.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to update task: %w", db.ErrNotFound)
	}
	return nil
}

// ListTasks retrieves a volunteer's most recent tasks, newest first
func (d *DB) ListTasks(ctx context.Context, volunteerID string, limit int) ([]db.Task, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE volunteer_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, volunteerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	return collectTasks(rows)
}

// ListTasksByOrg retrieves all tasks of an org
func (d *DB) ListTasksByOrg(ctx context.Context, org model.Org) ([]db.Task, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE org = ?
		ORDER BY created_at
	`, string(org))
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	return collectTasks(rows)
}
