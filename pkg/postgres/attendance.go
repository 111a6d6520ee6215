package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

const sessionColumns = `id, org, volunteer_id, unique_code, device_id, entry_time, exit_time, duration_minutes, status, created_at`

func scanSession(row pgx.Row) (*db.AttendanceSession, error) {
	var s db.AttendanceSession
	var org, status string
	if err := row.Scan(&s.ID, &org, &s.VolunteerID, &s.UniqueCode, &s.DeviceID,
		&s.EntryTime, &s.ExitTime, &s.DurationMinutes, &status, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Org = model.Org(org)
	s.Status = model.Status(status)
	return &s, nil
}

func collectSessions(rows pgx.Rows) ([]db.AttendanceSession, error) {
	defer rows.Close()

	var sessions []db.AttendanceSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance session: %w", err)
		}
		sessions = append(sessions, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance sessions: %w", err)
	}

	return sessions, nil
}

// GetOpenSession retrieves the newest open session for a volunteer
func (d *DB) GetOpenSession(ctx context.Context, volunteerID string) (*db.AttendanceSession, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance
		WHERE volunteer_id = $1 AND exit_time IS NULL
		ORDER BY entry_time DESC
		LIMIT 1
	`, volunteerID)

	s, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get open session: %w", notFound(err))
	}
	return s, nil
}

// GetOpenSessionByCode retrieves the newest open session for a code within an org
func (d *DB) GetOpenSessionByCode(ctx context.Context, org model.Org, code string) (*db.AttendanceSession, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance
		WHERE org = $1 AND lower(unique_code) = lower($2) AND exit_time IS NULL
		ORDER BY entry_time DESC
		LIMIT 1
	`, string(org), code)

	s, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get open session by code: %w", notFound(err))
	}
	return s, nil
}

// GetSession retrieves an attendance session by id
func (d *DB) GetSession(ctx context.Context, id string) (*db.AttendanceSession, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance
		WHERE id = $1
	`, id)

	s, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance session: %w", notFound(err))
	}
	return s, nil
}

// InsertSession inserts a new open session.
// Returns db.ErrOpenSessionExists if the volunteer already has one.
func (d *DB) InsertSession(ctx context.Context, session *db.AttendanceSession) error {
	err := d.pool.QueryRow(ctx, `
		INSERT INTO attendance (id, org, volunteer_id, unique_code, device_id, entry_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, session.ID, string(session.Org), session.VolunteerID, session.UniqueCode, session.DeviceID,
		session.EntryTime.UTC(), string(session.Status)).Scan(&session.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrOpenSessionExists
		}
		return fmt.Errorf("failed to insert attendance session: %w", err)
	}
	return nil
}

// CloseSession records the exit of a still-open session and resets it to pending
func (d *DB) CloseSession(ctx context.Context, id string, exitTime time.Time, durationMinutes int) (*db.AttendanceSession, error) {
	row := d.pool.QueryRow(ctx, `
		UPDATE attendance
		SET exit_time = $2, duration_minutes = $3, status = 'pending'
		WHERE id = $1 AND exit_time IS NULL
		RETURNING `+sessionColumns,
		id, exitTime.UTC(), durationMinutes)

	s, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to close attendance session: %w", notFound(err))
	}
	return s, nil
}

// SetSessionStatus sets the moderation status of a session
func (d *DB) SetSessionStatus(ctx context.Context, id string, status model.Status) (*db.AttendanceSession, error) {
	row := d.pool.QueryRow(ctx, `
		UPDATE attendance SET status = $2 WHERE id = $1
		RETURNING `+sessionColumns,
		id, string(status))

	s, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to set attendance status: %w", notFound(err))
	}
	return s, nil
}

// ListSessions retrieves a volunteer's most recent sessions, newest first
func (d *DB) ListSessions(ctx context.Context, volunteerID string, limit int) ([]db.AttendanceSession, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance
		WHERE volunteer_id = $1
		ORDER BY entry_time DESC
		LIMIT $2
	`, volunteerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance sessions: %w", err)
	}
	return collectSessions(rows)
}

// ListOpenSessions retrieves every session without an exit time
func (d *DB) ListOpenSessions(ctx context.Context) ([]db.AttendanceSession, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance
		WHERE exit_time IS NULL
		ORDER BY entry_time
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query open sessions: %w", err)
	}
	return collectSessions(rows)
}

// ListSessionsByOrg retrieves all sessions of an org
func (d *DB) ListSessionsByOrg(ctx context.Context, org model.Org) ([]db.AttendanceSession, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance
		WHERE org = $1
		ORDER BY entry_time
	`, string(org))
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance sessions: %w", err)
	}
	return collectSessions(rows)
}
