package calibration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventRepository is the append-only audit trail of calibration events.
// Events are never pruned by the core; retention is an operator concern.
type EventRepository interface {
	// Record appends an event for the given cylinder. The event ID and
	// timestamp are filled in if unset.
	Record(ctx context.Context, cylinderName string, event *Event) error

	// List returns a cylinder's calibration events, oldest first.
	List(ctx context.Context, cylinderName string) ([]Event, error)
}

// SQLiteEventRepository implements EventRepository using SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

// NewSQLiteEventRepository creates a new SQLite-backed event repository.
func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

// Record appends a calibration event.
func (r *SQLiteEventRepository) Record(ctx context.Context, cylinderName string, event *Event) error {
	if event.ID == "" {
		event.ID = "cal-" + uuid.NewString()[:8]
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO calibration_events
			(id, cylinder_name, kind, low_adc, high_adc, low_value, high_value, slope, intercept, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, cylinderName, string(event.Kind),
		event.LowADC, event.HighADC, event.LowValue, event.HighValue,
		event.Slope, event.Intercept,
		event.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting calibration event: %w", err)
	}
	return nil
}

// List returns a cylinder's calibration events, oldest first.
func (r *SQLiteEventRepository) List(ctx context.Context, cylinderName string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, low_adc, high_adc, low_value, high_value, slope, intercept, created_at
		FROM calibration_events
		WHERE cylinder_name = ?
		ORDER BY created_at ASC, id ASC`,
		cylinderName,
	)
	if err != nil {
		return nil, fmt.Errorf("querying calibration events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var kind, createdAt string
		if err := rows.Scan(&e.ID, &kind, &e.LowADC, &e.HighADC,
			&e.LowValue, &e.HighValue, &e.Slope, &e.Intercept, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning calibration event: %w", err)
		}
		e.Kind = Kind(kind)
		e.Timestamp, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating calibration events: %w", err)
	}
	return events, nil
}
