package migrations

import (
	"database/sql"
	"testing"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, MigrateUp(db))

	tables := []string{"request", "response", "request_history", "environment", "collections", "tabs", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s was not created", table)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, MigrateUp(db))
	require.NoError(t, MigrateUp(db))

	version, dirty, err := Version(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestVersion_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := Version(db)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)
}

// closeCounter records Close calls on the wrapped source driver.
type closeCounter struct {
	source.Driver
	closed *int
}

func (c closeCounter) Close() error {
	*c.closed++
	return c.Driver.Close()
}

func TestMigrateUp_ClosesSourceDriver(t *testing.T) {
	closed := 0
	prev := openSource
	openSource = func() (source.Driver, error) {
		d, err := prev()
		if err != nil {
			return nil, err
		}
		return closeCounter{Driver: d, closed: &closed}, nil
	}
	t.Cleanup(func() { openSource = prev })

	db := openTestDB(t)
	require.NoError(t, MigrateUp(db))
	require.NoError(t, MigrateUp(db))
	_, _, err := Version(db)
	require.NoError(t, err)

	assert.Equal(t, 3, closed)
	require.NoError(t, db.Ping(), "caller's database must stay open")
}
