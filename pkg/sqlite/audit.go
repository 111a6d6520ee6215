package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

// InsertAuditRecord appends an audit record
func (d *DB) InsertAuditRecord(ctx context.Context, record *db.AuditRecord) error {
	details := record.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	createdAt := time.Now().UTC()
	_, err = d.conn.ExecContext(ctx, `
		INSERT INTO audit_logs (id, org, actor, action, target_table, target_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, string(record.Org), record.Actor, record.Action, record.TargetTable, record.TargetID,
		string(payload), formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	record.CreatedAt = createdAt
	return nil
}

// ListAuditRecords retrieves audit records for a target row, oldest first
func (d *DB) ListAuditRecords(ctx context.Context, targetTable, targetID string) ([]db.AuditRecord, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, org, actor, action, target_table, target_id, details, created_at
		FROM audit_logs
		WHERE target_table = ? AND target_id = ?
		ORDER BY created_at
	`, targetTable, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []db.AuditRecord
	for rows.Next() {
		var r db.AuditRecord
		var org, details, createdAt string
		if err := rows.Scan(&r.ID, &org, &r.Actor, &r.Action, &r.TargetTable, &r.TargetID, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		r.Org = model.Org(org)
		if err := json.Unmarshal([]byte(details), &r.Details); err != nil {
			return nil, fmt.Errorf("failed to decode audit details: %w", err)
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit records: %w", err)
	}

	return records, nil
}
