package db_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightDeliveryManagement/internal/db"
)

func tableExists(t *testing.T, d *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := d.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestMigrateRollbackAndStatus(t *testing.T) {
	d, err := db.OpenRaw(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	status, err := db.Status(d)
	require.NoError(t, err)
	require.NotEmpty(t, status)
	for _, s := range status {
		assert.False(t, s.Applied, "%04d_%s", s.Version, s.Name)
	}

	require.NoError(t, db.Migrate(d))
	require.NoError(t, db.Migrate(d), "second run is a no-op")
	for _, table := range []string{"users", "shipments", "locations", "otp_codes", "notifications", "messages", "revoked_tokens"} {
		assert.True(t, tableExists(t, d, table), table)
	}

	status, err = db.Status(d)
	require.NoError(t, err)
	last := status[len(status)-1]
	assert.True(t, last.Applied)
	assert.Equal(t, "revoked_tokens", last.Name)

	require.NoError(t, db.RollbackLast(d))
	assert.False(t, tableExists(t, d, "revoked_tokens"))
	assert.True(t, tableExists(t, d, "messages"))
	status, err = db.Status(d)
	require.NoError(t, err)
	assert.False(t, status[len(status)-1].Applied)

	require.NoError(t, db.Migrate(d))
	assert.True(t, tableExists(t, d, "revoked_tokens"))
}

func TestRollbackOnEmptySchema(t *testing.T) {
	d, err := db.OpenRaw(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	assert.NoError(t, db.RollbackLast(d))
}
