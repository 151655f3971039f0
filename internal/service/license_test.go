package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ducnx/licgate/internal/clock"
	"github.com/ducnx/licgate/internal/model"
	"github.com/ducnx/licgate/internal/repository"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the schema the
// repositories expect. The postgres migration files use server-side
// defaults sqlite cannot evaluate, so the tables are created by hand.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	stmts := []string{
		`CREATE TABLE subscriptions (
			id TEXT PRIMARY KEY,
			contact_key TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL DEFAULT 'trial',
			plan TEXT NOT NULL DEFAULT 'basic',
			expires_at TIMESTAMP,
			max_devices INTEGER NOT NULL DEFAULT 4,
			phone TEXT NOT NULL DEFAULT '',
			last_seen_at TIMESTAMP,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)`,
		`CREATE TABLE device_bindings (
			id TEXT PRIMARY KEY,
			subscription_id TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			first_bound_at TIMESTAMP NOT NULL,
			last_seen_at TIMESTAMP NOT NULL,
			UNIQUE (subscription_id, fingerprint)
		)`,
		`CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL DEFAULT 'info',
			action TEXT NOT NULL,
			contact_key TEXT NOT NULL DEFAULT '',
			detail TEXT,
			created_at TIMESTAMP
		)`,
		`CREATE TABLE notification_rules (
			id INTEGER PRIMARY KEY,
			enabled BOOLEAN NOT NULL DEFAULT FALSE,
			reminder_template TEXT NOT NULL DEFAULT '',
			expired_template TEXT NOT NULL DEFAULT '',
			email_fallback BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type licenseEnv struct {
	db      *gorm.DB
	subRepo *repository.SubscriptionRepository
	clk     *clock.FakeClock
	svc     *LicenseService
}

func newLicenseEnv(t *testing.T) *licenseEnv {
	t.Helper()

	db := newTestDB(t)
	subRepo := repository.NewSubscriptionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	return &licenseEnv{
		db:      db,
		subRepo: subRepo,
		clk:     clk,
		svc:     NewLicenseService(subRepo, auditRepo, clk),
	}
}

func (e *licenseEnv) seedSubscription(t *testing.T, contactKey string, status model.SubscriptionStatus, expiresAt *time.Time, maxDevices int) *model.Subscription {
	t.Helper()

	sub := &model.Subscription{
		ID:         uuid.New(),
		ContactKey: contactKey,
		Status:     status,
		Plan:       "pro",
		ExpiresAt:  expiresAt,
		MaxDevices: maxDevices,
		Phone:      "84900001234",
	}
	require.NoError(t, e.db.Create(sub).Error)
	return sub
}

func (e *licenseEnv) auditCount(t *testing.T, category model.AuditCategory, action string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, e.db.Model(&model.AuditLog{}).
		Where("category = ? AND action = ?", category, action).
		Count(&count).Error)
	return count
}

func future(clk *clock.FakeClock, d time.Duration) *time.Time {
	ts := clk.Now().Add(d)
	return &ts
}

func TestValidateBindsThenRefreshes(t *testing.T) {
	env := newLicenseEnv(t)
	env.seedSubscription(t, "ana@example.com", model.StatusActive, future(env.clk, 30*24*time.Hour), 4)

	decision, err := env.svc.Validate("ana@example.com", "fp-laptop", "Ana's laptop")
	require.NoError(t, err)
	assert.Equal(t, DecisionNewlyBound, decision)

	// Same fingerprint again is an idempotent refresh, not a second slot
	env.clk.Advance(time.Hour)
	decision, err = env.svc.Validate("ana@example.com", "fp-laptop", "")
	require.NoError(t, err)
	assert.Equal(t, DecisionGranted, decision)

	sub, err := env.subRepo.FindByContactKey("ana@example.com")
	require.NoError(t, err)
	require.Len(t, sub.Devices, 1)
	assert.WithinDuration(t, env.clk.Now(), sub.Devices[0].LastSeenAt, time.Second)
	assert.True(t, sub.Devices[0].FirstBoundAt.Before(sub.Devices[0].LastSeenAt))
}

func TestValidateDeviceLimit(t *testing.T) {
	env := newLicenseEnv(t)
	env.seedSubscription(t, "ana@example.com", model.StatusActive, future(env.clk, 30*24*time.Hour), 2)

	for _, fp := range []string{"fp-1", "fp-2"} {
		decision, err := env.svc.Validate("ana@example.com", fp, "")
		require.NoError(t, err)
		assert.Equal(t, DecisionNewlyBound, decision)
	}

	decision, err := env.svc.Validate("ana@example.com", "fp-3", "")
	require.NoError(t, err)
	assert.Equal(t, DecisionDeviceLimit, decision)

	// The rejection is recorded as a security event, and no slot was used
	assert.Equal(t, int64(1), env.auditCount(t, model.AuditSecurity, model.AuditActionDeviceLimitHit))
	sub, err := env.subRepo.FindByContactKey("ana@example.com")
	require.NoError(t, err)
	assert.Len(t, sub.Devices, 2)

	// Existing devices keep validating at the limit
	decision, err = env.svc.Validate("ana@example.com", "fp-1", "")
	require.NoError(t, err)
	assert.Equal(t, DecisionGranted, decision)
}

func TestValidateBannedBeatsEverything(t *testing.T) {
	env := newLicenseEnv(t)
	// Banned and also past expiry: the ban must win
	env.seedSubscription(t, "bad@example.com", model.StatusBanned, future(env.clk, -24*time.Hour), 4)

	decision, err := env.svc.Validate("bad@example.com", "fp-1", "")
	require.NoError(t, err)
	assert.Equal(t, DecisionBanned, decision)

	sub, err := env.subRepo.FindByContactKey("bad@example.com")
	require.NoError(t, err)
	assert.Empty(t, sub.Devices)
}

func TestValidateExpired(t *testing.T) {
	env := newLicenseEnv(t)
	env.seedSubscription(t, "late@example.com", model.StatusActive, future(env.clk, -time.Minute), 4)

	decision, err := env.svc.Validate("late@example.com", "fp-1", "")
	require.NoError(t, err)
	assert.Equal(t, DecisionExpired, decision)
}

func TestValidateExpiredStatusWithoutDate(t *testing.T) {
	env := newLicenseEnv(t)
	env.seedSubscription(t, "flagged@example.com", model.StatusExpired, nil, 4)

	decision, err := env.svc.Validate("flagged@example.com", "fp-1", "")
	require.NoError(t, err)
	assert.Equal(t, DecisionExpired, decision)
}

func TestValidateUnknownContactKey(t *testing.T) {
	env := newLicenseEnv(t)

	decision, err := env.svc.Validate("nobody@example.com", "fp-1", "")
	require.NoError(t, err)
	assert.Equal(t, DecisionNotFound, decision)
}

func TestRemoveDeviceFreesSlot(t *testing.T) {
	env := newLicenseEnv(t)
	sub := env.seedSubscription(t, "ana@example.com", model.StatusActive, future(env.clk, 30*24*time.Hour), 1)

	decision, err := env.svc.Validate("ana@example.com", "fp-old", "")
	require.NoError(t, err)
	require.Equal(t, DecisionNewlyBound, decision)

	decision, err = env.svc.Validate("ana@example.com", "fp-new", "")
	require.NoError(t, err)
	require.Equal(t, DecisionDeviceLimit, decision)

	require.NoError(t, env.svc.RemoveDevice(sub.ID, "fp-old"))

	decision, err = env.svc.Validate("ana@example.com", "fp-new", "")
	require.NoError(t, err)
	assert.Equal(t, DecisionNewlyBound, decision)
}

func TestResetDevices(t *testing.T) {
	env := newLicenseEnv(t)
	sub := env.seedSubscription(t, "ana@example.com", model.StatusActive, future(env.clk, 30*24*time.Hour), 4)

	for _, fp := range []string{"fp-1", "fp-2", "fp-3"} {
		_, err := env.svc.Validate("ana@example.com", fp, "")
		require.NoError(t, err)
	}

	require.NoError(t, env.svc.ResetDevices(sub.ID))

	got, err := env.subRepo.FindByID(sub.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Devices)
	assert.Equal(t, int64(1), env.auditCount(t, model.AuditInfo, model.AuditActionDevicesReset))
}

func TestSetCapacityIsNotRetroactive(t *testing.T) {
	env := newLicenseEnv(t)
	sub := env.seedSubscription(t, "ana@example.com", model.StatusActive, future(env.clk, 30*24*time.Hour), 4)

	for _, fp := range []string{"fp-1", "fp-2", "fp-3"} {
		_, err := env.svc.Validate("ana@example.com", fp, "")
		require.NoError(t, err)
	}

	// Lowering below the current binding count keeps existing devices
	require.NoError(t, env.svc.SetCapacity(sub.ID, 2))

	got, err := env.subRepo.FindByID(sub.ID)
	require.NoError(t, err)
	assert.Len(t, got.Devices, 3)

	decision, err := env.svc.Validate("ana@example.com", "fp-2", "")
	require.NoError(t, err)
	assert.Equal(t, DecisionGranted, decision)

	decision, err = env.svc.Validate("ana@example.com", "fp-4", "")
	require.NoError(t, err)
	assert.Equal(t, DecisionDeviceLimit, decision)
}

func TestConcurrentValidatesNeverOverbind(t *testing.T) {
	env := newLicenseEnv(t)
	env.seedSubscription(t, "ana@example.com", model.StatusActive, future(env.clk, 30*24*time.Hour), 2)

	// Six distinct devices race for two slots. The per-key lock must
	// serialize them: exactly two bind, the rest hit the limit, and the
	// registry never exceeds capacity.
	const attempts = 6
	decisions := make([]Decision, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i], errs[i] = env.svc.Validate("ana@example.com", fmt.Sprintf("fp-%d", i), "")
		}(i)
	}
	wg.Wait()

	bound, limited := 0, 0
	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		switch decisions[i] {
		case DecisionNewlyBound:
			bound++
		case DecisionDeviceLimit:
			limited++
		default:
			t.Fatalf("unexpected decision %s", decisions[i])
		}
	}
	assert.Equal(t, 2, bound)
	assert.Equal(t, 4, limited)

	sub, err := env.subRepo.FindByContactKey("ana@example.com")
	require.NoError(t, err)
	assert.Len(t, sub.Devices, 2)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "granted", DecisionGranted.String())
	assert.Equal(t, "newly_bound", DecisionNewlyBound.String())
	assert.Equal(t, "device_limit", DecisionDeviceLimit.String())
	assert.Equal(t, "expired", DecisionExpired.String())
	assert.Equal(t, "banned", DecisionBanned.String())
	assert.Equal(t, "not_found", DecisionNotFound.String())
}
