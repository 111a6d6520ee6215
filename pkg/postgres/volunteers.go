package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

const volunteerColumns = `id, org, unique_code, name, role, telegram_id, created_at`

func scanVolunteer(row pgx.Row) (*db.Volunteer, error) {
	var v db.Volunteer
	var org string
	var telegramID *string
	if err := row.Scan(&v.ID, &org, &v.UniqueCode, &v.Name, &v.Role, &telegramID, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.Org = model.Org(org)
	if telegramID != nil {
		v.TelegramID = *telegramID
	}
	return &v, nil
}

// GetVolunteerByCode retrieves a volunteer by unique code within an org, ignoring case
func (d *DB) GetVolunteerByCode(ctx context.Context, org model.Org, code string) (*db.Volunteer, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+volunteerColumns+`
		FROM volunteers
		WHERE org = $1 AND lower(unique_code) = lower($2)
	`, string(org), code)

	v, err := scanVolunteer(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get volunteer by code: %w", notFound(err))
	}
	return v, nil
}

// GetVolunteerByID retrieves a volunteer by id
func (d *DB) GetVolunteerByID(ctx context.Context, id string) (*db.Volunteer, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+volunteerColumns+`
		FROM volunteers
		WHERE id = $1
	`, id)

	v, err := scanVolunteer(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get volunteer: %w", notFound(err))
	}
	return v, nil
}

// ListVolunteers retrieves all volunteers of an org ordered by name
func (d *DB) ListVolunteers(ctx context.Context, org model.Org) ([]db.Volunteer, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+volunteerColumns+`
		FROM volunteers
		WHERE org = $1
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
	tag, err := d.pool.Exec(ctx, `
		UPDATE volunteers SET telegram_id = $2 WHERE id = $1
	`, id, telegramID)
	if err != nil {
		return fmt.Errorf("failed to set volunteer telegram_id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to set volunteer telegram_id: %w", db.ErrNotFound)
	}
	return nil
}

// InsertVolunteer provisions a new volunteer.
// A duplicate code within the org is reported as a unique violation by the database.
func (d *DB) InsertVolunteer(ctx context.Context, volunteer *db.Volunteer) error {
	var telegramID *string
	if volunteer.TelegramID != "" {
		telegramID = &volunteer.TelegramID
	}

	err := d.pool.QueryRow(ctx, `
		INSERT INTO volunteers (id, org, unique_code, name, role, telegram_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, volunteer.ID, string(volunteer.Org), volunteer.UniqueCode, volunteer.Name, volunteer.Role,
		telegramID).Scan(&volunteer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert volunteer: %w", err)
	}
	return nil
}
