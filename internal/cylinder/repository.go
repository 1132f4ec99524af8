package cylinder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for cylinder record persistence plus the
// device identity index. This abstraction allows for different
// implementations (SQLite, mock, etc.) and enables unit testing without
// database dependencies.
type Repository interface {
	// Get retrieves a record by cylinder name.
	// Returns ErrNotFound if the cylinder does not exist.
	Get(ctx context.Context, name string) (*Record, error)

	// List retrieves all records ordered by name.
	List(ctx context.Context) ([]Record, error)

	// Create inserts a new record.
	// Returns ErrExists if a cylinder with the same name already exists.
	Create(ctx context.Context, rec *Record) error

	// Update replaces an existing record.
	// Returns ErrNotFound if the cylinder does not exist.
	Update(ctx context.Context, rec *Record) error

	// Delete removes a record by name.
	// Returns ErrNotFound if the cylinder does not exist.
	Delete(ctx context.Context, name string) error

	// ResolveDeviceID maps a device ID to a cylinder name via the identity
	// index. Returns ErrDeviceNotFound for unknown IDs.
	ResolveDeviceID(ctx context.Context, deviceID string) (string, error)

	// GetByDeviceID resolves a device ID and loads its record. A dangling
	// index entry (resolvable ID, missing record) also returns
	// ErrDeviceNotFound.
	GetByDeviceID(ctx context.Context, deviceID string) (*Record, error)

	// CreateIndexEntry adds a deviceID → name mapping.
	// Returns ErrDeviceExists on collision.
	CreateIndexEntry(ctx context.Context, deviceID, name string) error

	// DeleteIndexEntry removes a deviceID mapping. Removing an absent entry
	// is not an error; delete must be retryable after a partial failure.
	DeleteIndexEntry(ctx context.Context, deviceID string) error
}

// SQLiteRepository implements Repository using SQLite. Records are stored as
// JSON blobs keyed by cylinder name; the identity index is a separate
// two-column table so device lookups never scan record blobs.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get retrieves a record by cylinder name.
func (r *SQLiteRepository) Get(ctx context.Context, name string) (*Record, error) {
	var blob string
	err := r.db.QueryRowContext(ctx,
		"SELECT record FROM cylinders WHERE name = ?", name,
	).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying cylinder: %w", err)
	}

	return decodeRecord(name, blob)
}

// List retrieves all records ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name, record FROM cylinders ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying cylinders: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var name, blob string
		if err := rows.Scan(&name, &blob); err != nil {
			return nil, fmt.Errorf("scanning cylinder: %w", err)
		}
		rec, err := decodeRecord(name, blob)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cylinders: %w", err)
	}
	return records, nil
}

// Create inserts a new record.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	blob, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO cylinders (name, record, created_at, updated_at) VALUES (?, ?, ?, ?)",
		rec.Name, blob, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting cylinder: %w", err)
	}
	return nil
}

// Update replaces an existing record.
func (r *SQLiteRepository) Update(ctx context.Context, rec *Record) error {
	blob, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"UPDATE cylinders SET record = ?, updated_at = ? WHERE name = ?",
		blob, now, rec.Name,
	)
	if err != nil {
		return fmt.Errorf("updating cylinder: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a record by name.
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM cylinders WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting cylinder: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResolveDeviceID maps a device ID to a cylinder name.
func (r *SQLiteRepository) ResolveDeviceID(ctx context.Context, deviceID string) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx,
		"SELECT cylinder_name FROM device_index WHERE device_id = ?", deviceID,
	).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrDeviceNotFound
		}
		return "", fmt.Errorf("resolving device id: %w", err)
	}
	return name, nil
}

// GetByDeviceID resolves a device ID and loads its record.
func (r *SQLiteRepository) GetByDeviceID(ctx context.Context, deviceID string) (*Record, error) {
	name, err := r.ResolveDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	rec, err := r.Get(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Dangling index entry; the device is indistinguishable from
			// an unregistered one.
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return rec, nil
}

// CreateIndexEntry adds a deviceID → name mapping.
func (r *SQLiteRepository) CreateIndexEntry(ctx context.Context, deviceID, name string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO device_index (device_id, cylinder_name) VALUES (?, ?)",
		deviceID, name,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting index entry: %w", err)
	}
	return nil
}

// DeleteIndexEntry removes a deviceID mapping.
func (r *SQLiteRepository) DeleteIndexEntry(ctx context.Context, deviceID string) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM device_index WHERE device_id = ?", deviceID,
	); err != nil {
		return fmt.Errorf("deleting index entry: %w", err)
	}
	return nil
}

// encodeRecord serialises a record to its storage blob. The name is the row
// key, not part of the blob.
func encodeRecord(rec *Record) (string, error) {
	cpy := *rec
	cpy.Name = ""
	blob, err := json.Marshal(&cpy)
	if err != nil {
		return "", fmt.Errorf("marshalling record: %w", err)
	}
	return string(blob), nil
}

// decodeRecord parses a storage blob and attaches the row key as Name.
func decodeRecord(name, blob string) (*Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(blob), &rec); err != nil {
		return nil, fmt.Errorf("unmarshalling record %q: %w", name, err)
	}
	rec.Name = name
	return &rec, nil
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint
// violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
