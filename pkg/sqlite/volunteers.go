package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

const volunteerColumns = `id, org, unique_code, name, role, telegram_id, created_at`

func scanVolunteer(row scanner) (*db.Volunteer, error) {
	var v db.Volunteer
	var org, createdAt string
	var telegramID sql.NullString
	if err := row.Scan(&v.ID, &org, &v.UniqueCode, &v.Name, &v.Role, &telegramID, &createdAt); err != nil {
		return nil, err
	}
	v.Org = model.Org(org)
	v.TelegramID = telegramID.String

	var err error
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVolunteerByCode retrieves a volunteer by unique code within an org, ignoring case
func (d *DB) GetVolunteerByCode(ctx context.Context, org model.Org, code string) (*db.Volunteer, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT `+volunteerColumns+`
		FROM volunteers
		WHERE org = ? AND lower(unique_code) = lower(?)
	`, string(org), code)

	v, err := scanVolunteer(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get volunteer by code: %w", notFound(err))
	}
	return v, nil
}

// GetVolunteerByID retrieves a volunteer by id
func (d *DB) GetVolunteerByID(ctx context.Context, id string) (*db.Volunteer, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT `+volunteerColumns+`
		FROM volunteers
		WHERE id = ?
	`, id)

	v, err := scanVolunteer(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get volunteer: %w", notFound(err))
	}
	return v, nil
}

// ListVolunteers retrieves all volunteers of an org ordered by name
func (d *DB) ListVolunteers(ctx context.Context, org model.Org) ([]db.Volunteer, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT `+volunteerColumns+`
		FROM volunteers
		WHERE org = ?
		ORDER BY name
	`, string(org))
	if err != nil {
		return nil, fmt.Errorf("failed to query volunteers: %w", err)
	}
	defer rows.Close()

	var volunteers []db.Volunteer
	for rows.Next() {
		v, err := scanVolunteer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan volunteer: %w", err)
		}
		volunteers = append(volunteers, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating volunteers: %w", err)
	}

	return volunteers, nil
}

// SetVolunteerTelegramID links a Telegram chat to a volunteer, overwriting any previous link
func (d *DB) SetVolunteerTelegramID(ctx context.Context, id string, telegramID string) error {
	res, err := d.conn.ExecContext(ctx, `UPDATE volunteers SET telegram_id = ? WHERE id = ?`, telegramID, id)
	if err != nil {
		return fmt.Errorf("failed to set volunteer telegram_id: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to set volunteer telegram_id: %w", db.ErrNotFound)
	}
	return nil
}

// InsertVolunteer provisions a new volunteer
func (d *DB) InsertVolunteer(ctx context.Context, volunteer *db.Volunteer) error {
	telegramID := sql.NullString{String: volunteer.TelegramID, Valid: volunteer.TelegramID != ""}
	createdAt := time.Now().UTC()

	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO volunteers (id, org, unique_code, name, role, telegram_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, volunteer.ID, string(volunteer.Org), volunteer.UniqueCode, volunteer.Name, volunteer.Role,
		telegramID, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("failed to insert volunteer: %w", err)
	}
	volunteer.CreatedAt = createdAt
	return nil
}
