package cylinder

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// openTestDB creates an in-memory database with the cylinder schema.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE cylinders (
			name       TEXT PRIMARY KEY,
			record     TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE device_index (
			device_id     TEXT PRIMARY KEY,
			cylinder_name TEXT NOT NULL
		);
		CREATE TABLE history (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			cylinder_name TEXT NOT NULL,
			entry         TEXT NOT NULL,
			created_at    TEXT NOT NULL
		);
		CREATE TABLE calibration_events (
			id            TEXT PRIMARY KEY,
			cylinder_name TEXT NOT NULL,
			kind          TEXT NOT NULL,
			low_adc       REAL NOT NULL,
			high_adc      REAL NOT NULL,
			low_value     REAL NOT NULL,
			high_value    REAL NOT NULL,
			slope         REAL NOT NULL,
			intercept     REAL NOT NULL,
			created_at    TEXT NOT NULL
		);
	`)
	if err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

func TestRepositoryCRUD(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t))
	ctx := context.Background()

	rec := &Record{
		Name:            "tank-01",
		DeviceID:        "aB3dE5gH",
		Company:         "acme",
		Volume:          50,
		Orientation:     DefaultOrientation,
		Unit:            DefaultUnit,
		PressureEnabled: 1,
		WiFi:            map[string]string{"plant-wifi": "secret"},
	}

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		if _, err := repo.Get(ctx, "tank-01"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("create and get round-trip", func(t *testing.T) {
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.Get(ctx, "tank-01")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Name != "tank-01" {
			t.Errorf("Name = %q, want tank-01", got.Name)
		}
		if got.DeviceID != "aB3dE5gH" || got.Company != "acme" || got.Volume != 50 {
			t.Errorf("record fields lost in round-trip: %+v", got)
		}
		if got.WiFi["plant-wifi"] != "secret" {
			t.Error("WiFi map lost in round-trip")
		}
	})

	t.Run("create duplicate returns ErrExists", func(t *testing.T) {
		if err := repo.Create(ctx, rec); !errors.Is(err, ErrExists) {
			t.Errorf("Create() error = %v, want ErrExists", err)
		}
	})

	t.Run("update persists changes", func(t *testing.T) {
		rec.Gas = "nitrogen"
		if err := repo.Update(ctx, rec); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		got, err := repo.Get(ctx, "tank-01")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Gas != "nitrogen" {
			t.Errorf("Gas = %q, want nitrogen", got.Gas)
		}
	})

	t.Run("update missing returns ErrNotFound", func(t *testing.T) {
		missing := &Record{Name: "ghost"}
		if err := repo.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list ordered by name", func(t *testing.T) {
		other := &Record{Name: "aaa-tank", Company: "acme"}
		if err := repo.Create(ctx, other); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		records, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("List() = %d records, want 2", len(records))
		}
		if records[0].Name != "aaa-tank" || records[1].Name != "tank-01" {
			t.Errorf("List() order = %q, %q", records[0].Name, records[1].Name)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.Delete(ctx, "aaa-tank"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := repo.Delete(ctx, "aaa-tank"); !errors.Is(err, ErrNotFound) {
			t.Errorf("second Delete() error = %v, want ErrNotFound", err)
		}
	})
}

func TestDeviceIndex(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t))
	ctx := context.Background()

	rec := &Record{Name: "tank-01", Company: "acme"}
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("resolve unknown returns ErrDeviceNotFound", func(t *testing.T) {
		if _, err := repo.ResolveDeviceID(ctx, "nope1234"); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("ResolveDeviceID() error = %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("create and resolve", func(t *testing.T) {
		if err := repo.CreateIndexEntry(ctx, "aB3dE5gH", "tank-01"); err != nil {
			t.Fatalf("CreateIndexEntry() error = %v", err)
		}
		name, err := repo.ResolveDeviceID(ctx, "aB3dE5gH")
		if err != nil {
			t.Fatalf("ResolveDeviceID() error = %v", err)
		}
		if name != "tank-01" {
			t.Errorf("ResolveDeviceID() = %q, want tank-01", name)
		}
	})

	t.Run("collision returns ErrDeviceExists", func(t *testing.T) {
		err := repo.CreateIndexEntry(ctx, "aB3dE5gH", "tank-02")
		if !errors.Is(err, ErrDeviceExists) {
			t.Errorf("CreateIndexEntry() error = %v, want ErrDeviceExists", err)
		}
	})

	t.Run("get by device id", func(t *testing.T) {
		got, err := repo.GetByDeviceID(ctx, "aB3dE5gH")
		if err != nil {
			t.Fatalf("GetByDeviceID() error = %v", err)
		}
		if got.Name != "tank-01" {
			t.Errorf("GetByDeviceID().Name = %q, want tank-01", got.Name)
		}
	})

	t.Run("dangling index entry looks unregistered", func(t *testing.T) {
		if err := repo.CreateIndexEntry(ctx, "dangling", "ghost-tank"); err != nil {
			t.Fatalf("CreateIndexEntry() error = %v", err)
		}
		if _, err := repo.GetByDeviceID(ctx, "dangling"); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("GetByDeviceID() error = %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("delete entry is idempotent", func(t *testing.T) {
		if err := repo.DeleteIndexEntry(ctx, "aB3dE5gH"); err != nil {
			t.Fatalf("DeleteIndexEntry() error = %v", err)
		}
		// Removing an absent entry must not error; delete is retried after
		// partial failures.
		if err := repo.DeleteIndexEntry(ctx, "aB3dE5gH"); err != nil {
			t.Errorf("second DeleteIndexEntry() error = %v", err)
		}
	})
}

func TestRecordBlobStripsName(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, &Record{Name: "tank-01", Company: "acme"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var blob string
	if err := db.QueryRow("SELECT record FROM cylinders WHERE name = 'tank-01'").Scan(&blob); err != nil {
		t.Fatalf("reading blob: %v", err)
	}
	// The name is the row key, not part of the blob.
	if strings.Contains(blob, `"name"`) {
		t.Errorf("stored blob contains name field: %s", blob)
	}
}
