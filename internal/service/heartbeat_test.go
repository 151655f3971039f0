package service

import (
	"testing"
	"time"

	"github.com/ducnx/licgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatCoalescesDuplicates(t *testing.T) {
	env := newLicenseEnv(t)
	env.seedSubscription(t, "ana@example.com", model.StatusActive, nil, 4)
	env.seedSubscription(t, "bob@example.com", model.StatusActive, nil, 4)

	agg := NewHeartbeatAggregator(env.subRepo, env.clk, time.Minute)

	// Many pings per client within one cycle collapse to one write each
	for i := 0; i < 50; i++ {
		agg.Record("ana@example.com")
	}
	agg.Record("bob@example.com")

	n, err := agg.Flush()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sub, err := env.subRepo.FindByContactKey("ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, sub.LastSeenAt)
	assert.WithinDuration(t, env.clk.Now(), *sub.LastSeenAt, time.Second)
}

func TestHeartbeatEmptyFlushIsNoop(t *testing.T) {
	env := newLicenseEnv(t)
	agg := NewHeartbeatAggregator(env.subRepo, env.clk, time.Minute)

	n, err := agg.Flush()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestHeartbeatUnknownKeysAreHarmless(t *testing.T) {
	env := newLicenseEnv(t)
	agg := NewHeartbeatAggregator(env.subRepo, env.clk, time.Minute)

	// Pings for contact keys without a subscription just update nothing
	agg.Record("ghost@example.com")
	n, err := agg.Flush()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHeartbeatRecordDuringNextCycle(t *testing.T) {
	env := newLicenseEnv(t)
	env.seedSubscription(t, "ana@example.com", model.StatusActive, nil, 4)
	agg := NewHeartbeatAggregator(env.subRepo, env.clk, time.Minute)

	agg.Record("ana@example.com")
	n, err := agg.Flush()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// The set was swapped: a new ping lands in the next batch
	agg.Record("ana@example.com")
	n, err = agg.Flush()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestActiveCountNeverReadsZero(t *testing.T) {
	env := newLicenseEnv(t)
	agg := NewHeartbeatAggregator(env.subRepo, env.clk, time.Minute)

	// No subscription has ever been seen, the dashboard still shows 1
	assert.Equal(t, 1, agg.ActiveCount(10*time.Minute))
}

func TestActiveCountWindow(t *testing.T) {
	env := newLicenseEnv(t)

	recent := env.clk.Now().Add(-time.Minute)
	stale := env.clk.Now().Add(-time.Hour)

	ana := env.seedSubscription(t, "ana@example.com", model.StatusActive, nil, 4)
	bob := env.seedSubscription(t, "bob@example.com", model.StatusActive, nil, 4)
	require.NoError(t, env.db.Model(ana).Update("last_seen_at", recent).Error)
	require.NoError(t, env.db.Model(bob).Update("last_seen_at", stale).Error)

	agg := NewHeartbeatAggregator(env.subRepo, env.clk, time.Minute)
	assert.Equal(t, 1, agg.ActiveCount(10*time.Minute))

	// Widening the window picks up the stale client too
	assert.Equal(t, 2, agg.ActiveCount(2*time.Hour))
}
