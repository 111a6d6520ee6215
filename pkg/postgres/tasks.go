package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

const taskColumns = `id, org, volunteer_id, unique_code, title, description, category, status, duration_minutes, completed_at, created_at`

func scanTask(row pgx.Row) (*db.Task, error) {
	var t db.Task
	var org, status string
	if err := row.Scan(&t.ID, &org, &t.VolunteerID, &t.UniqueCode, &t.Title, &t.Description,
		&t.Category, &status, &t.DurationMinutes, &t.CompletedAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Org = model.Org(org)
	t.Status = model.Status(status)
	return &t, nil
}

func collectTasks(rows pgx.Rows) ([]db.Task, error) {
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
	err := d.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, org, volunteer_id, unique_code, title, description, category, status, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, task.ID, string(task.Org), task.VolunteerID, task.UniqueCode, task.Title, task.Description,
		task.Category, string(task.Status), task.DurationMinutes).Scan(&task.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by id
func (d *DB) GetTask(ctx context.Context, id string) (*db.Task, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1
	`, id)

	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", notFound(err))
	}
	return t, nil
}

// UpdateTask writes the mutable fields of a task
func (d *DB) UpdateTask(ctx context.Context, task *db.Task) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE tasks
		SET status = $2, duration_minutes = $3, completed_at = $4
		WHERE id = $1
	`, task.ID, string(task.Status), task.DurationMinutes, task.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update task: %w", db.ErrNotFound)
	}
	return nil
}

// ListTasks retrieves a volunteer's most recent tasks, newest first
func (d *DB) ListTasks(ctx context.Context, volunteerID string, limit int) ([]db.Task, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE volunteer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, volunteerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	return collectTasks(rows)
}

// ListTasksByOrg retrieves all tasks of an org
func (d *DB) ListTasksByOrg(ctx context.Context, org model.Org) ([]db.Task, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE org = $1
		ORDER BY created_at
	`, string(org))
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	return collectTasks(rows)
}
