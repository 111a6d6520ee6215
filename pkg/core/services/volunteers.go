package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

// ImportStore is the datastore surface used by ImportVolunteers
type ImportStore interface {
	GetVolunteerByCode(ctx context.Context, org model.Org, code string) (*db.Volunteer, error)
	InsertVolunteer(ctx context.Context, volunteer *db.Volunteer) error
}

// ImportResult counts what ImportVolunteers did
type ImportResult struct {
	Created []db.Volunteer
	Skipped []db.Volunteer
}

// ImportVolunteers provisions roster entries, skipping codes that already exist in their org.
// Existing volunteers are never modified.
func ImportVolunteers(ctx context.Context, store ImportStore, logger *zap.Logger, volunteers []db.Volunteer) (*ImportResult, error) {
	result := &ImportResult{}

	for _, v := range volunteers {
		existing, err := lookupInOrg(ctx, store, v.Org, v.UniqueCode)
		if err != nil {
			return result, err
		}
		if existing != nil {
			logger.Debug("Skipping existing volunteer",
				zap.String("code", v.UniqueCode),
				zap.String("org", string(v.Org)))
			result.Skipped = append(result.Skipped, *existing)
			continue
		}

		v.ID = uuid.New().String()
		if err := store.InsertVolunteer(ctx, &v); err != nil {
			return result, fmt.Errorf("failed to insert volunteer %s: %w", v.UniqueCode, err)
		}
		result.Created = append(result.Created, v)
	}

	logger.Info("Volunteer import complete",
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)))

	return result, nil
}
