package database

import (
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicportal/lifecycle-engine/migrations"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{
		Path:         filepath.Join(t.TempDir(), "data", "engine.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrator_RunIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	migrator := NewMigrator(db, zap.NewNop())

	require.NoError(t, migrator.Run(migrations.Files))
	require.NoError(t, migrator.Run(migrations.Files))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	loaded, err := LoadMigrations(migrations.Files)
	require.NoError(t, err)
	assert.Equal(t, len(loaded), count)
}

func TestLoadMigrations(t *testing.T) {
	files := fstest.MapFS{
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("ignored")},
	}

	loaded, err := LoadMigrations(files)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 1, loaded[0].Version)
	assert.Equal(t, "first", loaded[0].Name)
	assert.Equal(t, "second", loaded[1].Name)

	_, err = LoadMigrations(fstest.MapFS{"abc.sql": {Data: []byte("")}})
	assert.Error(t, err)

	_, err = LoadMigrations(fstest.MapFS{
		"001_a.sql": {Data: []byte("")},
		"001_b.sql": {Data: []byte("")},
	})
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrator(db, zap.NewNop()).Run(migrations.Files))

	insert := `INSERT INTO notification_triggers
		(event_id, domain, application_id, old_status, new_status, recipient_id, created_at)
		VALUES ('evt-1', 'clearance', 1, 'pending', 'under_review', 9, CURRENT_TIMESTAMP)`

	_, err := db.Exec(insert)
	require.NoError(t, err)

	_, err = db.Exec(insert)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}

func TestStatusHistoryIsAppendOnly(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrator(db, zap.NewNop()).Run(migrations.Files))

	_, err := db.Exec(`INSERT INTO status_history (subject, subject_id, to_status, created_at)
		VALUES ('APPLICATION', 1, 'pending', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE status_history SET to_status = 'approved'`)
	assert.ErrorContains(t, err, "append-only")

	_, err = db.Exec(`DELETE FROM status_history`)
	assert.ErrorContains(t, err, "append-only")
}
