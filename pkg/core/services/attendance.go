package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

// CheckInStore is the datastore surface used by CheckIn
type CheckInStore interface {
	GetVolunteerByCode(ctx context.Context, org model.Org, code string) (*db.Volunteer, error)
	GetOpenSessionByCode(ctx context.Context, org model.Org, code string) (*db.AttendanceSession, error)
	GetOpenSession(ctx context.Context, volunteerID string) (*db.AttendanceSession, error)
	InsertSession(ctx context.Context, session *db.AttendanceSession) error
}

// CheckOutStore is the datastore surface used by CheckOut
type CheckOutStore interface {
	GetVolunteerByCode(ctx context.Context, org model.Org, code string) (*db.Volunteer, error)
	GetOpenSession(ctx context.Context, volunteerID string) (*db.AttendanceSession, error)
	CloseSession(ctx context.Context, id string, exitTime time.Time, durationMinutes int) (*db.AttendanceSession, error)
}

// SweepStore is the datastore surface used by SweepOpenSessions
type SweepStore interface {
	ListOpenSessions(ctx context.Context) ([]db.AttendanceSession, error)
	GetVolunteerByID(ctx context.Context, id string) (*db.Volunteer, error)
	CloseSession(ctx context.Context, id string, exitTime time.Time, durationMinutes int) (*db.AttendanceSession, error)
}

// CheckInResult is the outcome of a check-in. Already is set when the volunteer
// had an open session; Session is then that existing session.
type CheckInResult struct {
	Session   *db.AttendanceSession
	Volunteer *db.Volunteer
	Org       model.Org
	Already   bool
}

// CheckOutResult is the outcome of a check-out
type CheckOutResult struct {
	Session   *db.AttendanceSession
	Volunteer *db.Volunteer
	Org       model.Org
}

// CheckIn opens an attendance session for the volunteer owning code.
// The volunteer and any open session are probed concurrently per partition.
func CheckIn(ctx context.Context, store CheckInStore, deps Deps, logger *zap.Logger, rawCode string, hint model.Org, deviceID string) (*CheckInResult, error) {
	code, err := normaliseCode(rawCode)
	if err != nil {
		return nil, err
	}

	logger.Debug("Checking in", zap.String("code", code), zap.String("hint", string(hint)))

	var volunteer *db.Volunteer
	var open *db.AttendanceSession
	org, err := resolve(ctx, logger, code, hint, ModeFallback, func(ctx context.Context, org model.Org) (bool, error) {
		g, gctx := errgroup.WithContext(ctx)
		var v *db.Volunteer
		var s *db.AttendanceSession
		g.Go(func() error {
			var err error
			v, err = lookupInOrg(gctx, store, org, code)
			return err
		})
		g.Go(func() error {
			var err error
			s, err = store.GetOpenSessionByCode(gctx, org, code)
			if errors.Is(err, db.ErrNotFound) {
				s, err = nil, nil
			}
			return err
		})
		if err := g.Wait(); err != nil {
			return false, err
		}
		volunteer, open = v, s
		return v != nil, nil
	})
	if errors.Is(err, ErrVolunteerNotFound) {
		return nil, requestError(ErrVolunteerNotFound, "Invalid Code: '%s'", code)
	}
	if err != nil {
		return nil, err
	}

	if open != nil {
		logger.Info("Volunteer already checked in",
			zap.String("volunteer", volunteer.Name),
			zap.String("session_id", open.ID))
		return &CheckInResult{Session: open, Volunteer: volunteer, Org: org, Already: true}, nil
	}

	if strings.TrimSpace(deviceID) == "" {
		deviceID = model.DefaultDeviceID
	}
	now := deps.now()
	session := &db.AttendanceSession{
		ID:          uuid.New().String(),
		Org:         org,
		VolunteerID: volunteer.ID,
		UniqueCode:  volunteer.UniqueCode,
		DeviceID:    deviceID,
		EntryTime:   now,
		Status:      model.StatusPending,
	}

	if err := store.InsertSession(ctx, session); err != nil {
		if !errors.Is(err, db.ErrOpenSessionExists) {
			return nil, fmt.Errorf("failed to create attendance session: %w", err)
		}
		// lost a race with a concurrent check-in
		winner, getErr := store.GetOpenSession(ctx, volunteer.ID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load concurrent attendance session: %w", getErr)
		}
		logger.Info("Concurrent check-in detected", zap.String("session_id", winner.ID))
		return &CheckInResult{Session: winner, Volunteer: volunteer, Org: org, Already: true}, nil
	}

	if err := deps.Auditor.Record(ctx, org, model.ActorSystem, "check-in", model.TableAttendance, session.ID,
		map[string]any{"code": code}); err != nil {
		return nil, err
	}

	deps.notifyAdmin(fmt.Sprintf("✅ *Check-in Alert*\nVolunteer: *%s* (%s)\nOrg: %s\nTime: %s",
		volunteer.Name, volunteer.Role, org, eventClock(now)))
	deps.notifyVolunteer(volunteer.TelegramID, fmt.Sprintf("✅ *Checked in*\nWelcome, *%s*! Your shift started at %s.",
		volunteer.Name, eventClock(now)))

	logger.Info("Volunteer checked in",
		zap.String("volunteer", volunteer.Name),
		zap.String("org", string(org)),
		zap.String("session_id", session.ID))

	return &CheckInResult{Session: session, Volunteer: volunteer, Org: org}, nil
}

// CheckOut closes the volunteer's newest open session and resets it to pending review
func CheckOut(ctx context.Context, store CheckOutStore, deps Deps, logger *zap.Logger, rawCode string, hint model.Org) (*CheckOutResult, error) {
	volunteer, err := ResolveVolunteer(ctx, store, logger, rawCode, hint, ModeRedirect)
	if err != nil {
		return nil, err
	}
	org := volunteer.Org

	open, err := store.GetOpenSession(ctx, volunteer.ID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, requestError(ErrNoActiveSession, "No active check-in found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open session: %w", err)
	}

	exit := deps.now()
	minutes := durationMinutes(open.EntryTime, exit)

	logger.Debug("Closing session",
		zap.String("session_id", open.ID),
		zap.Time("entry", open.EntryTime),
		zap.Int("duration_minutes", minutes))

	closed, err := store.CloseSession(ctx, open.ID, exit, minutes)
	if errors.Is(err, db.ErrNotFound) {
		return nil, requestError(ErrNoActiveSession, "No active check-in found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to close attendance session: %w", err)
	}

	if err := deps.Auditor.Record(ctx, org, model.ActorSystem, "check-out", model.TableAttendance, closed.ID,
		map[string]any{"duration": minutes}); err != nil {
		return nil, err
	}

	deps.notifyAdmin(fmt.Sprintf("👋 *Checkout Alert*\nVolunteer: *%s*\nOrg: %s\nDuration: %d mins\nTime: %s",
		volunteer.Name, org, minutes, eventClock(exit)))
	deps.notifyVolunteer(volunteer.TelegramID, fmt.Sprintf("👋 *Checked out*\nThanks, *%s*! Logged %d mins, pending approval.",
		volunteer.Name, minutes))

	logger.Info("Volunteer checked out",
		zap.String("volunteer", volunteer.Name),
		zap.String("org", string(org)),
		zap.Int("duration_minutes", minutes))

	return &CheckOutResult{Session: closed, Volunteer: volunteer, Org: org}, nil
}

// SweepOpenSessions closes every session still open, as if each volunteer had checked out now.
// Returns the sessions it closed.
func SweepOpenSessions(ctx context.Context, store SweepStore, deps Deps, logger *zap.Logger) ([]db.AttendanceSession, error) {
	open, err := store.ListOpenSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open sessions: %w", err)
	}

	logger.Debug("Sweeping open sessions", zap.Int("count", len(open)))

	exit := deps.now()
	var closed []db.AttendanceSession
	for _, s := range open {
		minutes := durationMinutes(s.EntryTime, exit)
		c, err := store.CloseSession(ctx, s.ID, exit, minutes)
		if errors.Is(err, db.ErrNotFound) {
			// checked out between list and close
			continue
		}
		if err != nil {
			return closed, fmt.Errorf("failed to close session %s: %w", s.ID, err)
		}

		if err := deps.Auditor.Record(ctx, s.Org, model.ActorSystem, "auto_check_out", model.TableAttendance, c.ID,
			map[string]any{"duration": minutes}); err != nil {
			return closed, err
		}
		closed = append(closed, *c)

		v, err := store.GetVolunteerByID(ctx, s.VolunteerID)
		if err != nil {
			logger.Warn("Could not load volunteer for sweep notification",
				zap.String("volunteer_id", s.VolunteerID), zap.Error(err))
			continue
		}
		deps.notifyVolunteer(v.TelegramID, fmt.Sprintf("🌙 *Auto Checkout*\nYou were checked out automatically after %d mins. An admin will review your hours.", minutes))
	}

	if len(closed) > 0 {
		deps.notifyAdmin(fmt.Sprintf("🌙 *Auto Checkout*\nClosed %d open session(s) at %s.", len(closed), eventClock(exit)))
	}

	logger.Info("Open session sweep complete", zap.Int("closed", len(closed)))
	return closed, nil
}
