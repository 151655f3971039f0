package repository

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newOperatorTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Same shape as the migration: uniqueness is per (operator, token),
	// so two operators may register the same device token
	require.NoError(t, db.Exec(`CREATE TABLE operator_devices (
		id TEXT PRIMARY KEY,
		operator_id TEXT NOT NULL,
		fcm_token TEXT NOT NULL,
		device_type TEXT NOT NULL DEFAULT 'unknown',
		last_active_at TIMESTAMP,
		created_at TIMESTAMP,
		UNIQUE (operator_id, fcm_token)
	)`).Error)
	return db
}

func TestAddDeviceUpsertsPerOperatorToken(t *testing.T) {
	db := newOperatorTestDB(t)
	repo := NewOperatorRepository(db)

	op1 := uuid.New()
	op2 := uuid.New()

	// Re-registering the same token for the same operator refreshes the
	// row instead of inserting a duplicate
	require.NoError(t, repo.AddDevice(op1, "tok-a", "android"))
	require.NoError(t, repo.AddDevice(op1, "tok-a", "ios"))

	devices, err := repo.AllDevices()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "ios", devices[0].DeviceType)

	// A second operator with the same token is a distinct registration
	require.NoError(t, repo.AddDevice(op2, "tok-a", "web"))

	devices, err = repo.AllDevices()
	require.NoError(t, err)
	assert.Len(t, devices, 2)
}
