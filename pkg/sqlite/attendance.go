package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

const sessionColumns = `id, org, volunteer_id, unique_code, device_id, entry_time, exit_time, duration_minutes, status, created_at`

func scanSession(row scanner) (*db.AttendanceSession, error) {
	var s db.AttendanceSession
	var org, status, entryTime, createdAt string
	var exitTime sql.NullString
	var duration sql.NullInt64
	if err := row.Scan(&s.ID, &org, &s.VolunteerID, &s.UniqueCode, &s.DeviceID,
		&entryTime, &exitTime, &duration, &status, &createdAt); err != nil {
		return nil, err
	}
	s.Org = model.Org(org)
	s.Status = model.Status(status)
	if duration.Valid {
		minutes := int(duration.Int64)
		s.DurationMinutes = &minutes
	}

	var err error
	if s.EntryTime, err = parseTime(entryTime); err != nil {
		return nil, err
	}
	if s.ExitTime, err = parseNullTime(exitTime); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSessions(rows *sql.Rows) ([]db.AttendanceSession, error) {
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
	row := d.conn.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance
		WHERE volunteer_id = ? AND exit_time IS NULL
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
	row := d.conn.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance
		WHERE org = ? AND lower(unique_code) = lower(?) AND exit_time IS NULL
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
	row := d.conn.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance
		WHERE id = ?
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
	createdAt := time.Now().UTC()

	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO attendance (id, org, volunteer_id, unique_code, device_id, entry_time, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID, string(session.Org), session.VolunteerID, session.UniqueCode, session.DeviceID,
		formatTime(session.EntryTime), string(session.Status), formatTime(createdAt))
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrOpenSessionExists
		}
		return fmt.Errorf("failed to insert attendance session: %w", err)
	}
	session.CreatedAt = createdAt
	return nil
}

// CloseSession records the exit of a still-open session and resets it to pending
func (d *DB) CloseSession(ctx context.Context, id string, exitTime time.Time, durationMinutes int) (*db.AttendanceSession, error) {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE attendance
		SET exit_time = ?, duration_minutes = ?, status = 'pending'
		WHERE id = ? AND exit_time IS NULL
	`, formatTime(exitTime), durationMinutes, id)
	if err != nil {
		return nil, fmt.Errorf("failed to close attendance session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("failed to close attendance session: %w", db.ErrNotFound)
	}
	return d.GetSession(ctx, id)
}

// SetSessionStatus sets the moderation status of a session
func (d *DB) SetSessionStatus(ctx context.Context, id string, status model.Status) (*db.AttendanceSession, error) {
	res, err := d.conn.ExecContext(ctx, `UPDATE attendance SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return nil, fmt.Errorf("failed to set attendance status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("failed to set attendance status: %w", db.ErrNotFound)
	}
	return d.GetSession(ctx, id)
}

// ListSessions retrieves a volunteer's most recent sessions, newest first
func (d *DB) ListSessions(ctx context.Context, volunteerID string, limit int) ([]db.AttendanceSession, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance
		WHERE volunteer_id = ?
		ORDER BY entry_time DESC
		LIMIT ?
	`, volunteerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance sessions: %w", err)
	}
	return collectSessions(rows)
}

// ListOpenSessions retrieves every session without an exit time
func (d *DB) ListOpenSessions(ctx context.Context) ([]db.AttendanceSession, error) {
	rows, err := d.conn.QueryContext(ctx, `
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
	rows, err := d.conn.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance
		WHERE org = ?
		ORDER BY entry_time
	`, string(org))
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance sessions: %w", err)
	}
	return collectSessions(rows)
}
