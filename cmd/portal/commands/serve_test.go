package commands

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-portal/internal/config"
)

func TestRunOnSchedule_RunsUntilScheduleEnds(t *testing.T) {
	var calls atomic.Int32
	remaining := 2
	next := func(after time.Time) time.Time {
		if remaining == 0 {
			return time.Time{}
		}
		remaining--
		return after.Add(10 * time.Millisecond)
	}

	err := runOnSchedule(context.Background(), zap.NewNop(), next, func(context.Context) {
		calls.Add(1)
	})

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunOnSchedule_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	next := func(after time.Time) time.Time { return after.Add(time.Hour) }

	done := make(chan error, 1)
	go func() {
		done <- runOnSchedule(ctx, zap.NewNop(), next, func(context.Context) {
			t.Error("fn should not run before the first occurrence")
		})
	}()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runOnSchedule did not return after cancel")
	}
}

func TestRunOnSchedule_WithSweepRule(t *testing.T) {
	cfg := &config.Config{Sweep: config.SweepConfig{RRule: "FREQ=SECONDLY;COUNT=2"}}

	schedule, err := cfg.SweepSchedule(time.Now().Add(time.Second))
	require.NoError(t, err)
	require.NotNil(t, schedule)

	var calls atomic.Int32
	next := func(after time.Time) time.Time { return schedule.After(after, false) }

	err = runOnSchedule(context.Background(), zap.NewNop(), next, func(context.Context) {
		calls.Add(1)
	})

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOrgsFromFlag(t *testing.T) {
	orgs, err := orgsFromFlag("")
	require.NoError(t, err)
	assert.Len(t, orgs, 2)

	orgs, err = orgsFromFlag("both")
	require.NoError(t, err)
	assert.Len(t, orgs, 2)

	orgs, err = orgsFromFlag("capec")
	require.NoError(t, err)
	assert.Equal(t, "CAPEC", string(orgs[0]))

	_, err = orgsFromFlag("nope")
	assert.Error(t, err)
}
