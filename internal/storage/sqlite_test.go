package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "strom.db")

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"exchanges", "todos", "reminders"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strom.db")

	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO todos(description, created_at) VALUES ('buy milk', '2024-01-01T00:00:00Z')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM todos`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpen_Memory(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO reminders(kind, due_at, message) VALUES ('alarm', '2024-01-01T07:00:00Z', 'Alarm!')`)
	require.NoError(t, err)
}
