package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

// Publisher receives every record after it has been stored
type Publisher interface {
	Publish(record db.AuditRecord)
}

// Logger appends audit records for mutating actions
type Logger struct {
	store      db.AuditStore
	logger     *zap.Logger
	publishers []Publisher
}

func NewLogger(store db.AuditStore, logger *zap.Logger, publishers ...Publisher) *Logger {
	return &Logger{
		store:      store,
		logger:     logger,
		publishers: publishers,
	}
}

// Record appends one audit record. A storage failure is returned to the caller.
func (l *Logger) Record(ctx context.Context, org model.Org, actor, action, targetTable, targetID string, details map[string]any) error {
	record := &db.AuditRecord{
		ID:          uuid.New().String(),
		Org:         org,
		Actor:       actor,
		Action:      action,
		TargetTable: targetTable,
		TargetID:    targetID,
		Details:     details,
	}

	if err := l.store.InsertAuditRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}

	l.logger.Debug("Audit record written",
		zap.String("id", record.ID),
		zap.String("org", string(org)),
		zap.String("actor", actor),
		zap.String("action", action),
		zap.String("target", targetTable+"/"+targetID))

	for _, p := range l.publishers {
		p.Publish(*record)
	}
	return nil
}
