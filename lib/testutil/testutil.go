package testutil

import (
	"database/sql"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// SetupDB opens an in-memory sqlite database with the given schema applied.
func SetupDB(t testing.TB, schema string) *sql.DB {
	database, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	_, err = database.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		t.Fatal(err)
	}
	return database
}
