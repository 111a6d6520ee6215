package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

// ResolveMode controls what happens when a code is found outside the hinted partition
type ResolveMode int

const (
	// ModeFallback silently switches to the partition holding the code
	ModeFallback ResolveMode = iota
	// ModeRedirect returns a *WrongOrganizationError naming the correct partition
	ModeRedirect
)

// VolunteerFinder looks volunteers up by code within one partition
type VolunteerFinder interface {
	GetVolunteerByCode(ctx context.Context, org model.Org, code string) (*db.Volunteer, error)
}

// probeFunc looks a code up in a single partition and reports whether it was found
type probeFunc func(ctx context.Context, org model.Org) (bool, error)

// probeOrder returns the partitions to search for a hint, in priority order
func probeOrder(hint model.Org) []model.Org {
	if hint.IsValid() {
		return []model.Org{hint, hint.Other()}
	}
	return model.Orgs
}

// resolve runs probe over the partitions in priority order and returns the org that matched
func resolve(ctx context.Context, logger *zap.Logger, code string, hint model.Org, mode ResolveMode, probe probeFunc) (model.Org, error) {
	for i, org := range probeOrder(hint) {
		logger.Debug("Probing partition for code", zap.String("code", code), zap.String("org", string(org)))

		found, err := probe(ctx, org)
		if err != nil {
			return "", err
		}
		if !found {
			continue
		}

		if i > 0 && hint.IsValid() {
			if mode == ModeRedirect {
				logger.Debug("Code found in other partition",
					zap.String("code", code),
					zap.String("requested", string(hint)),
					zap.String("correct", string(org)))
				return "", &WrongOrganizationError{Code: code, Requested: hint, Correct: org}
			}
			logger.Info("Falling back to other partition",
				zap.String("code", code),
				zap.String("requested", string(hint)),
				zap.String("resolved", string(org)))
		}
		return org, nil
	}

	logger.Debug("Code not found in any partition", zap.String("code", code))
	return "", requestError(ErrVolunteerNotFound, "Volunteer not found")
}

// normaliseCode trims the code and rejects empty input
func normaliseCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", requestError(ErrMissingFields, "Missing code")
	}
	return code, nil
}

// lookupInOrg fetches a volunteer by code, mapping a miss to (nil, nil)
func lookupInOrg(ctx context.Context, store VolunteerFinder, org model.Org, code string) (*db.Volunteer, error) {
	v, err := store.GetVolunteerByCode(ctx, org, code)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up volunteer in %s: %w", org, err)
	}
	return v, nil
}

// ResolveVolunteer maps a code and optional org hint onto the volunteer that owns it.
// With no usable hint ITECPEC is searched before CAPEC.
func ResolveVolunteer(ctx context.Context, store VolunteerFinder, logger *zap.Logger, rawCode string, hint model.Org, mode ResolveMode) (*db.Volunteer, error) {
	code, err := normaliseCode(rawCode)
	if err != nil {
		return nil, err
	}

	var volunteer *db.Volunteer
	_, err = resolve(ctx, logger, code, hint, mode, func(ctx context.Context, org model.Org) (bool, error) {
		v, err := lookupInOrg(ctx, store, org, code)
		if err != nil {
			return false, err
		}
		volunteer = v
		return v != nil, nil
	})
	if err != nil {
		return nil, err
	}
	return volunteer, nil
}
