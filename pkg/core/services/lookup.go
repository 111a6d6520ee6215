package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

// historyLimit caps the attendance and task history returned by a lookup
const historyLimit = 10

// LookupStore is the datastore surface used by LookupVolunteer
type LookupStore interface {
	GetVolunteerByCode(ctx context.Context, org model.Org, code string) (*db.Volunteer, error)
	ListSessions(ctx context.Context, volunteerID string, limit int) ([]db.AttendanceSession, error)
	ListTasks(ctx context.Context, volunteerID string, limit int) ([]db.Task, error)
}

// VolunteerProfile is a volunteer with their recent history, newest first
type VolunteerProfile struct {
	Volunteer  *db.Volunteer          `json:"volunteer"`
	Attendance []db.AttendanceSession `json:"attendance"`
	Tasks      []db.Task              `json:"tasks"`
}

// LookupVolunteer resolves code and fetches the volunteer's recent attendance and tasks.
// rawOrg must be present; a value that names no org searches ITECPEC then CAPEC.
func LookupVolunteer(ctx context.Context, store LookupStore, logger *zap.Logger, rawCode, rawOrg string) (*VolunteerProfile, error) {
	if rawCode == "" || strings.TrimSpace(rawOrg) == "" {
		return nil, requestError(ErrMissingFields, "Missing code or org param")
	}

	volunteer, err := ResolveVolunteer(ctx, store, logger, rawCode, model.ParseOrgHint(rawOrg), ModeFallback)
	if err != nil {
		return nil, err
	}

	profile := &VolunteerProfile{
		Volunteer:  volunteer,
		Attendance: []db.AttendanceSession{},
		Tasks:      []db.Task{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sessions, err := store.ListSessions(gctx, volunteer.ID, historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list attendance: %w", err)
		}
		if sessions != nil {
			profile.Attendance = sessions
		}
		return nil
	})
	g.Go(func() error {
		tasks, err := store.ListTasks(gctx, volunteer.ID, historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		if tasks != nil {
			profile.Tasks = tasks
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Debug("Volunteer lookup complete",
		zap.String("volunteer", volunteer.Name),
		zap.String("org", string(volunteer.Org)),
		zap.Int("attendance", len(profile.Attendance)),
		zap.Int("tasks", len(profile.Tasks)))

	return profile, nil
}
