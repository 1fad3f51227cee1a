// ABOUTME: Tests for SQLite store setup
// ABOUTME: Covers database creation, migrations and the timestamp helpers

package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file was not created")
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file was not created in nested directory")
}

func TestNewSQLiteStore_MigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	first, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer second.Close()

	var count int
	err = second.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('servers') WHERE name = 'refreshed_at'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIsConstraintViolation(t *testing.T) {
	assert.False(t, isConstraintViolation(nil))
	assert.True(t, isConstraintViolation(errors.New("UNIQUE constraint failed: servers.name")))
	assert.True(t, isConstraintViolation(errors.New("FOREIGN KEY constraint failed")))
	assert.False(t, isConstraintViolation(errors.New("database is locked")))
}

func TestFormatTime_SortsLexically(t *testing.T) {
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	earlier := formatTime(base)
	later := formatTime(base.Add(1500 * time.Microsecond))

	assert.Len(t, later, len(earlier))
	assert.Less(t, earlier, later)

	parsed, err := parseTime(later)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(base.Add(1500*time.Microsecond)))
}
