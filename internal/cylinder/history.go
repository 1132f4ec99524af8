package cylinder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HistoryRepository stores the bounded, append-only reading log per
// cylinder. Entries beyond HistoryCap are discarded oldest-first on append.
//
// Rows persist the entry as text. New writes are structured JSON; rows
// migrated from the pre-migration system are flat comma-delimited lines
// (timestamp,lADC,pADC,ubt). Both decode through DecodeHistoryEntry and the
// legacy shape never leaves this package.
type HistoryRepository interface {
	// Append adds an entry to the log, enforcing the cap. The insert and
	// the pruning of overflow run in one transaction.
	Append(ctx context.Context, name string, entry HistoryEntry) error

	// ReadSince returns entries with timestamps in [since, now] in
	// insertion order. Entries carry raw values only; the store computes
	// level/pressure from the current calibration.
	ReadSince(ctx context.Context, name string, since time.Time) ([]HistoryEntry, error)

	// ReadRecent returns the most recent limit entries in insertion order.
	ReadRecent(ctx context.Context, name string, limit int) ([]HistoryEntry, error)

	// ReadAll returns the full log in insertion order.
	ReadAll(ctx context.Context, name string) ([]HistoryEntry, error)

	// DeleteAll removes a cylinder's entire log.
	DeleteAll(ctx context.Context, name string) error
}

// SQLiteHistoryRepository implements HistoryRepository using SQLite.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a new SQLite-backed history repository.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// Append adds an entry and prunes overflow beyond HistoryCap in the same
// transaction, so a crash never leaves the log over the cap with the new
// entry missing.
func (r *SQLiteHistoryRepository) Append(ctx context.Context, name string, entry HistoryEntry) error {
	line, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("marshalling history entry: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning history append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO history (cylinder_name, entry, created_at) VALUES (?, ?, ?)",
		name, string(line), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}

	// FIFO cap: drop oldest rows until the log is back at the limit.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM history
		WHERE cylinder_name = ?
		  AND id NOT IN (
			SELECT id FROM history
			WHERE cylinder_name = ?
			ORDER BY id DESC
			LIMIT ?
		  )`,
		name, name, HistoryCap,
	); err != nil {
		return fmt.Errorf("pruning history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history append: %w", err)
	}
	return nil
}

// ReadSince returns entries with timestamps in [since, now].
func (r *SQLiteHistoryRepository) ReadSince(ctx context.Context, name string, since time.Time) ([]HistoryEntry, error) {
	entries, err := r.ReadAll(ctx, name)
	if err != nil {
		return nil, err
	}

	filtered := entries[:0]
	for _, e := range entries {
		ts, err := time.ParseInLocation(TimeFormat, e.Timestamp, time.Local)
		if err != nil {
			// Unparseable timestamps (hand-edited legacy rows) are kept
			// rather than silently dropped.
			filtered = append(filtered, e)
			continue
		}
		if !ts.Before(since) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// ReadRecent returns the most recent limit entries in insertion order.
func (r *SQLiteHistoryRepository) ReadRecent(ctx context.Context, name string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		return []HistoryEntry{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT entry FROM (
			SELECT id, entry FROM history
			WHERE cylinder_name = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`,
		name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

// ReadAll returns the full log in insertion order.
func (r *SQLiteHistoryRepository) ReadAll(ctx context.Context, name string) ([]HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT entry FROM history WHERE cylinder_name = ? ORDER BY id ASC", name)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

// DeleteAll removes a cylinder's entire log.
func (r *SQLiteHistoryRepository) DeleteAll(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM history WHERE cylinder_name = ?", name,
	); err != nil {
		return fmt.Errorf("deleting history: %w", err)
	}
	return nil
}

// scanHistoryRows decodes queried entry blobs in order.
func scanHistoryRows(rows *sql.Rows) ([]HistoryEntry, error) {
	entries := []HistoryEntry{}
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		entry, err := DecodeHistoryEntry(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}

// legacyFieldCount is the minimum number of comma-separated fields in a
// pre-migration history line (timestamp,lADC,pADC[,ubt]).
const legacyFieldCount = 3

// DecodeHistoryEntry parses a stored history line. Structured JSON is tried
// first; flat comma-delimited legacy lines are the fallback. The returned
// entry is always the structured in-memory shape.
func DecodeHistoryEntry(line string) (HistoryEntry, error) {
	trimmed := strings.TrimSpace(line)

	if strings.HasPrefix(trimmed, "{") {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(trimmed), &entry); err != nil {
			return HistoryEntry{}, fmt.Errorf("unmarshalling history entry: %w", err)
		}
		// Computed values must never be persisted; drop any that were.
		entry.Level = nil
		entry.Pressure = nil
		return entry, nil
	}

	return decodeLegacyHistoryLine(trimmed)
}

// decodeLegacyHistoryLine parses a flat timestamp,lADC,pADC,ubt line.
// Missing pressure readings were written as "-".
func decodeLegacyHistoryLine(line string) (HistoryEntry, error) {
	parts := strings.Split(line, ",")
	if len(parts) < legacyFieldCount {
		return HistoryEntry{}, fmt.Errorf("malformed legacy history line %q", line)
	}

	entry := HistoryEntry{Timestamp: strings.TrimSpace(parts[0])}

	lADC, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("parsing legacy level ADC: %w", err)
	}
	entry.LevelADC = lADC

	if p := strings.TrimSpace(parts[2]); p != "" && p != "-" {
		pADC, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return HistoryEntry{}, fmt.Errorf("parsing legacy pressure ADC: %w", err)
		}
		entry.PressureADC = &pADC
	}

	if len(parts) > legacyFieldCount {
		if ubt := strings.TrimSpace(parts[3]); ubt != "" && ubt != "-" {
			battery, err := strconv.ParseFloat(ubt, 64)
			if err != nil {
				return HistoryEntry{}, fmt.Errorf("parsing legacy battery: %w", err)
			}
			entry.Battery = battery
		}
	}

	return entry, nil
}
