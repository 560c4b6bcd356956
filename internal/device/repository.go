package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository persists the last known inventory so the gateway can answer
// queries before the hub has been reached after a restart.
type Repository interface {
	// List retrieves all stored devices ordered by object ID.
	List(ctx context.Context) ([]Device, error)

	// Save inserts or replaces one device.
	Save(ctx context.Context, d Device) error

	// SaveAll stores every device in a single transaction.
	SaveAll(ctx context.Context, devices []Device) error

	// Delete removes a device by object ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id int) error
}

// SQLiteRepository implements Repository on the lutron_devices table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const upsertDevice = `
	INSERT INTO lutron_devices (
		object_id, name, description, serial_number, device_class,
		category, properties, last_updated, first_seen
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(object_id) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		serial_number = excluded.serial_number,
		device_class = excluded.device_class,
		category = excluded.category,
		properties = excluded.properties,
		last_updated = excluded.last_updated`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// List retrieves all stored devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT object_id, name, description, serial_number, device_class,
			properties, last_updated
		FROM lutron_devices
		ORDER BY object_id`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Save inserts or replaces one device. first_seen is kept from the
// original insert.
func (r *SQLiteRepository) Save(ctx context.Context, d Device) error {
	return r.save(ctx, r.db, d)
}

// SaveAll stores every device atomically.
func (r *SQLiteRepository) SaveAll(ctx context.Context, devices []Device) error {
	if len(devices) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	for _, d := range devices {
		if err := r.save(ctx, tx, d); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing devices: %w", err)
	}
	return nil
}

// Delete removes a device by object ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM lutron_devices WHERE object_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (r *SQLiteRepository) save(ctx context.Context, ex execer, d Device) error {
	if d.ObjectID <= 0 {
		return fmt.Errorf("%w: object id %d", ErrInvalidDevice, d.ObjectID)
	}

	props, err := encodeProperties(d.Properties)
	if err != nil {
		return fmt.Errorf("marshalling properties: %w", err)
	}

	_, err = ex.ExecContext(ctx, upsertDevice,
		d.ObjectID,
		d.Name,
		d.Description,
		d.SerialNumber,
		d.DeviceClass,
		string(d.Category()),
		props,
		formatTime(d.LastUpdated),
		formatTime(r.now()),
	)
	if err != nil {
		return fmt.Errorf("saving device %d: %w", d.ObjectID, err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (Device, error) {
	var (
		d           Device
		propsJSON   string
		lastUpdated string
	)
	err := row.Scan(
		&d.ObjectID,
		&d.Name,
		&d.Description,
		&d.SerialNumber,
		&d.DeviceClass,
		&propsJSON,
		&lastUpdated,
	)
	if err != nil {
		return Device{}, err
	}

	d.Properties, err = decodeProperties(propsJSON)
	if err != nil {
		return Device{}, fmt.Errorf("unmarshalling properties: %w", err)
	}
	d.LastUpdated, err = parseTime(lastUpdated)
	if err != nil {
		return Device{}, fmt.Errorf("parsing last_updated: %w", err)
	}
	return d, nil
}

// encodeProperties stores properties as a JSON object keyed by the decimal
// property number.
func encodeProperties(props map[int]int) (string, error) {
	if props == nil {
		props = map[int]int{}
	}
	b, err := json.Marshal(props)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeProperties(s string) (map[int]int, error) {
	props := make(map[int]int)
	if err := json.Unmarshal([]byte(s), &props); err != nil {
		return nil, err
	}
	return props, nil
}

// formatTime renders t as RFC3339Nano UTC. The zero time is stored as an
// empty string.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Join(ErrInvalidDevice, err)
	}
	return t, nil
}
