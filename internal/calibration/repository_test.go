package calibration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
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
		)`)
	if err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

func TestEventRepository(t *testing.T) {
	repo := NewSQLiteEventRepository(openTestDB(t))
	ctx := context.Background()

	t.Run("empty list for unknown cylinder", func(t *testing.T) {
		events, err := repo.List(ctx, "tank-01")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(events) != 0 {
			t.Errorf("List() = %d events, want 0", len(events))
		}
	})

	t.Run("record fills id and timestamp", func(t *testing.T) {
		ev := &Event{
			Kind:      KindLevel,
			LowADC:    100,
			HighADC:   900,
			HighValue: 50,
			Slope:     0.0625,
			Intercept: -6.25,
		}
		if err := repo.Record(ctx, "tank-01", ev); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if ev.ID == "" {
			t.Error("event ID not assigned")
		}
		if ev.Timestamp.IsZero() {
			t.Error("event timestamp not assigned")
		}
	})

	t.Run("list returns oldest first", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			ev := &Event{
				Kind:      KindPressure,
				Timestamp: base.Add(time.Duration(i) * time.Hour),
				LowADC:    50,
				HighADC:   850,
				HighValue: 200,
				Slope:     0.25,
			}
			if err := repo.Record(ctx, "tank-02", ev); err != nil {
				t.Fatalf("Record() error = %v", err)
			}
		}

		events, err := repo.List(ctx, "tank-02")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(events) != 3 {
			t.Fatalf("List() = %d events, want 3", len(events))
		}
		for i := 1; i < len(events); i++ {
			if events[i].Timestamp.Before(events[i-1].Timestamp) {
				t.Errorf("events out of order at %d", i)
			}
		}
	})

	t.Run("scoped by cylinder", func(t *testing.T) {
		events, err := repo.List(ctx, "tank-01")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		for _, e := range events {
			if e.Kind != KindLevel {
				t.Errorf("tank-01 got event kind %q from another cylinder", e.Kind)
			}
		}
	})
}
