package migrations_test

import (
	"testing"

	"dirsnap/internal/database"
	"dirsnap/internal/database/migrations"
)

func TestMigrateUp(t *testing.T) {
	t.Run("creates all tables", func(t *testing.T) {
		db, err := database.OpenConnection(":memory:")
		if err != nil {
			t.Fatalf("OpenConnection() error = %v", err)
		}
		defer db.Close()

		if err := migrations.MigrateUp(db); err != nil {
			t.Fatalf("MigrateUp() error = %v", err)
		}

		for _, table := range []string{"entries", "snapshot_info", "users", "groups"} {
			var name string
			err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
			if err != nil {
				t.Errorf("table %s missing after migration: %v", table, err)
			}
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		db, err := database.OpenConnection(":memory:")
		if err != nil {
			t.Fatalf("OpenConnection() error = %v", err)
		}
		defer db.Close()

		if err := migrations.MigrateUp(db); err != nil {
			t.Fatalf("first MigrateUp() error = %v", err)
		}
		if err := migrations.MigrateUp(db); err != nil {
			t.Errorf("second MigrateUp() error = %v", err)
		}
	})
}

func TestCheck(t *testing.T) {
	t.Run("unmigrated database fails", func(t *testing.T) {
		db, err := database.OpenConnection(":memory:")
		if err != nil {
			t.Fatalf("OpenConnection() error = %v", err)
		}
		defer db.Close()

		if err := migrations.Check(db); err == nil {
			t.Error("Check() should fail on an unmigrated database")
		}
	})

	t.Run("migrated database passes", func(t *testing.T) {
		db, err := database.OpenConnection(":memory:")
		if err != nil {
			t.Fatalf("OpenConnection() error = %v", err)
		}
		defer db.Close()

		if err := migrations.MigrateUp(db); err != nil {
			t.Fatalf("MigrateUp() error = %v", err)
		}
		if err := migrations.Check(db); err != nil {
			t.Errorf("Check() error = %v", err)
		}
	})
}
