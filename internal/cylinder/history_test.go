package cylinder

import (
	"context"
	"testing"
	"time"
)

func floatPtr(v float64) *float64 { return &v }

func TestHistoryAppendRead(t *testing.T) {
	repo := NewSQLiteHistoryRepository(openTestDB(t))
	ctx := context.Background()

	entries := []HistoryEntry{
		{Timestamp: "2026-03-01 08:00:00", LevelADC: 400, PressureADC: floatPtr(200), Battery: 3.95},
		{Timestamp: "2026-03-02 08:00:00", LevelADC: 380, Battery: 3.94},
		{Timestamp: "2026-03-03 08:00:00", LevelADC: 360, PressureADC: floatPtr(190), Battery: 3.92},
	}
	for _, e := range entries {
		if err := repo.Append(ctx, "tank-01", e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := repo.ReadAll(ctx, "tank-01")
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadAll() = %d entries, want 3", len(got))
	}
	// Insertion order preserved
	for i := range entries {
		if got[i].Timestamp != entries[i].Timestamp {
			t.Errorf("entry %d timestamp = %q, want %q", i, got[i].Timestamp, entries[i].Timestamp)
		}
		if got[i].LevelADC != entries[i].LevelADC {
			t.Errorf("entry %d lADC = %v, want %v", i, got[i].LevelADC, entries[i].LevelADC)
		}
	}
	if got[1].PressureADC != nil {
		t.Error("missing pressure reading should stay nil")
	}
	if got[0].PressureADC == nil || *got[0].PressureADC != 200 {
		t.Error("pressure reading lost in round-trip")
	}
}

func TestHistoryCap(t *testing.T) {
	repo := NewSQLiteHistoryRepository(openTestDB(t))
	ctx := context.Background()

	for i := 0; i < HistoryCap+25; i++ {
		e := HistoryEntry{
			Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).
				Add(time.Duration(i) * time.Minute).Format(TimeFormat),
			LevelADC: float64(i),
		}
		if err := repo.Append(ctx, "tank-01", e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := repo.ReadAll(ctx, "tank-01")
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != HistoryCap {
		t.Fatalf("log size = %d, want %d", len(got), HistoryCap)
	}
	// Oldest entries were dropped, newest survive.
	if got[0].LevelADC != 25 {
		t.Errorf("oldest surviving lADC = %v, want 25", got[0].LevelADC)
	}
	if got[len(got)-1].LevelADC != float64(HistoryCap+24) {
		t.Errorf("newest lADC = %v, want %v", got[len(got)-1].LevelADC, HistoryCap+24)
	}
}

func TestHistoryReadRecent(t *testing.T) {
	repo := NewSQLiteHistoryRepository(openTestDB(t))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		e := HistoryEntry{Timestamp: "2026-03-01 08:00:00", LevelADC: float64(i)}
		if err := repo.Append(ctx, "tank-01", e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := repo.ReadRecent(ctx, "tank-01", 3)
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadRecent() = %d entries, want 3", len(got))
	}
	// Most recent three, still in insertion order.
	for i, want := range []float64{7, 8, 9} {
		if got[i].LevelADC != want {
			t.Errorf("entry %d lADC = %v, want %v", i, got[i].LevelADC, want)
		}
	}

	empty, err := repo.ReadRecent(ctx, "tank-01", 0)
	if err != nil {
		t.Fatalf("ReadRecent(0) error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ReadRecent(0) = %d entries, want 0", len(empty))
	}
}

func TestHistoryReadSince(t *testing.T) {
	repo := NewSQLiteHistoryRepository(openTestDB(t))
	ctx := context.Background()

	now := time.Now()
	old := HistoryEntry{Timestamp: now.Add(-48 * time.Hour).Format(TimeFormat), LevelADC: 1}
	recent := HistoryEntry{Timestamp: now.Add(-1 * time.Hour).Format(TimeFormat), LevelADC: 2}
	for _, e := range []HistoryEntry{old, recent} {
		if err := repo.Append(ctx, "tank-01", e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := repo.ReadSince(ctx, "tank-01", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ReadSince() error = %v", err)
	}
	if len(got) != 1 || got[0].LevelADC != 2 {
		t.Errorf("ReadSince() = %+v, want only the recent entry", got)
	}
}

func TestHistoryDeleteAll(t *testing.T) {
	repo := NewSQLiteHistoryRepository(openTestDB(t))
	ctx := context.Background()

	if err := repo.Append(ctx, "tank-01", HistoryEntry{Timestamp: "2026-03-01 08:00:00", LevelADC: 1}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := repo.Append(ctx, "tank-02", HistoryEntry{Timestamp: "2026-03-01 08:00:00", LevelADC: 2}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := repo.DeleteAll(ctx, "tank-01"); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}

	got, err := repo.ReadAll(ctx, "tank-01")
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("tank-01 log = %d entries after DeleteAll, want 0", len(got))
	}

	other, err := repo.ReadAll(ctx, "tank-02")
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(other) != 1 {
		t.Errorf("tank-02 log = %d entries, want 1 (untouched)", len(other))
	}
}

func TestDecodeHistoryEntry(t *testing.T) {
	t.Run("json entry", func(t *testing.T) {
		entry, err := DecodeHistoryEntry(`{"timestamp":"2026-03-01 08:00:00","lADC":400,"pADC":200,"ubt":3.95}`)
		if err != nil {
			t.Fatalf("DecodeHistoryEntry() error = %v", err)
		}
		if entry.LevelADC != 400 || entry.Battery != 3.95 {
			t.Errorf("decoded = %+v", entry)
		}
		if entry.PressureADC == nil || *entry.PressureADC != 200 {
			t.Error("pressure not decoded")
		}
	})

	t.Run("json entry drops persisted computed values", func(t *testing.T) {
		entry, err := DecodeHistoryEntry(`{"timestamp":"2026-03-01 08:00:00","lADC":400,"ubt":3.9,"level":25}`)
		if err != nil {
			t.Fatalf("DecodeHistoryEntry() error = %v", err)
		}
		if entry.Level != nil {
			t.Error("computed level should never survive decode")
		}
	})

	t.Run("legacy line", func(t *testing.T) {
		entry, err := DecodeHistoryEntry("2026-03-01 08:00:00,400,200,3.95")
		if err != nil {
			t.Fatalf("DecodeHistoryEntry() error = %v", err)
		}
		if entry.Timestamp != "2026-03-01 08:00:00" || entry.LevelADC != 400 || entry.Battery != 3.95 {
			t.Errorf("decoded = %+v", entry)
		}
		if entry.PressureADC == nil || *entry.PressureADC != 200 {
			t.Error("legacy pressure not decoded")
		}
	})

	t.Run("legacy line with missing pressure", func(t *testing.T) {
		entry, err := DecodeHistoryEntry("2026-03-01 08:00:00,400,-,3.95")
		if err != nil {
			t.Fatalf("DecodeHistoryEntry() error = %v", err)
		}
		if entry.PressureADC != nil {
			t.Error(`"-" pressure should decode to nil`)
		}
	})

	t.Run("legacy line without battery", func(t *testing.T) {
		entry, err := DecodeHistoryEntry("2026-03-01 08:00:00,400,-")
		if err != nil {
			t.Fatalf("DecodeHistoryEntry() error = %v", err)
		}
		if entry.Battery != 0 {
			t.Errorf("Battery = %v, want 0", entry.Battery)
		}
	})

	t.Run("malformed line", func(t *testing.T) {
		if _, err := DecodeHistoryEntry("garbage"); err == nil {
			t.Error("DecodeHistoryEntry() should fail on malformed input")
		}
	})
}
