package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

// InsertAuditRecord appends an audit record
func (d *DB) InsertAuditRecord(ctx context.Context, record *db.AuditRecord) error {
	details := record.Details
	if details == nil {
		details = map[string]any{}
	}

	err := d.pool.QueryRow(ctx, `
		INSERT INTO audit_logs (id, org, actor, action, target_table, target_id, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, record.ID, string(record.Org), record.Actor, record.Action, record.TargetTable, record.TargetID,
		details).Scan(&record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// ListAuditRecords retrieves audit records for a target row, oldest first
func (d *DB) ListAuditRecords(ctx context.Context, targetTable, targetID string) ([]db.AuditRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, org, actor, action, target_table, target_id, details, created_at
		FROM audit_logs
		WHERE target_table = $1 AND target_id = $2
		ORDER BY created_at
	`, targetTable, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []db.AuditRecord
	for rows.Next() {
		var r db.AuditRecord
		var org string
		if err := rows.Scan(&r.ID, &org, &r.Actor, &r.Action, &r.TargetTable, &r.TargetID, &r.Details, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		r.Org = model.Org(org)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit records: %w", err)
	}

	return records, nil
}
