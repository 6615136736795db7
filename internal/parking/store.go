package parking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// timeLayout is fixed width so that text order in SQLite is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store defines slot and reservation-log persistence.
//
// Every method that changes state runs in a single transaction. Sentinel
// errors are returned unwrapped; database failures match ErrPersistence.
type Store interface {
	// GetSlot returns ErrSlotNotFound if the slot does not exist.
	GetSlot(ctx context.Context, slotNumber string) (*Slot, error)

	// ListSlots returns all slots ordered by slot number.
	ListSlots(ctx context.Context) ([]Slot, error)

	// FindSlotByCredentials returns the slot currently holding the
	// plate/code pair, or ErrSlotNotFound.
	FindSlotByCredentials(ctx context.Context, plate, otp string) (*Slot, error)

	// LatestLog returns the newest log row for the pair, or ErrReservationNotFound.
	LatestLog(ctx context.Context, plate, otp string) (*ReservationLog, error)

	// SlotLog returns the newest log row for the pair on one slot, or
	// ErrReservationNotFound.
	SlotLog(ctx context.Context, slotNumber, plate, otp string) (*ReservationLog, error)

	// ListLogs returns every log row, most recent check-in first,
	// rows never checked in last.
	ListLogs(ctx context.Context) ([]ReservationLog, error)

	// CreateSlot adds an available slot. Returns ErrSlotExists on duplicates.
	CreateSlot(ctx context.Context, slotNumber string, at time.Time) error

	// EnsureSlots creates any missing slots and reports how many were added.
	EnsureSlots(ctx context.Context, slotNumbers []string, at time.Time) (int, error)

	// Reserve marks an available slot occupied and opens a log row.
	// Returns ErrSlotNotFound or ErrSlotOccupied without writing anything.
	Reserve(ctx context.Context, slotNumber, plate, otp string, at time.Time) (*ReservationLog, error)

	// MarkCheckedIn stamps time_in on the latest log row for the pair and
	// re-affirms the slot as occupied. Returns ErrUnauthorized if the slot
	// no longer holds the pair.
	MarkCheckedIn(ctx context.Context, slotNumber, plate, otp string, at time.Time) (*ReservationLog, error)

	// Release frees the slot and stamps time_out on the log row atomically.
	// Returns ErrUnauthorized if the slot no longer holds the pair.
	Release(ctx context.Context, slotNumber, plate, otp string, logID int64, at time.Time) error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store on an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const slotColumns = `slot_number, status, license_plate, otp, updated_at`

const logColumns = `id, slot_number, license_plate, otp, created_at, time_in, time_out`

// slotLogQuery selects the newest log row for a slot/plate/code triple.
const slotLogQuery = `
	SELECT ` + logColumns + `
	FROM reservation_logs
	WHERE slot_number = ? AND license_plate = ? AND otp = ?
	ORDER BY id DESC
	LIMIT 1`

// GetSlot returns a slot by number.
func (s *SQLiteStore) GetSlot(ctx context.Context, slotNumber string) (*Slot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE slot_number = ?`, slotNumber)
	slot, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, persistenceErr("querying slot", err)
	}
	return slot, nil
}

// ListSlots returns all slots.
func (s *SQLiteStore) ListSlots(ctx context.Context) ([]Slot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM slots ORDER BY slot_number`)
	if err != nil {
		return nil, persistenceErr("querying slots", err)
	}
	defer rows.Close()

	slots := make([]Slot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, persistenceErr("scanning slot", err)
		}
		slots = append(slots, *slot)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterating slots", err)
	}
	return slots, nil
}

// FindSlotByCredentials returns the slot holding the pair.
func (s *SQLiteStore) FindSlotByCredentials(ctx context.Context, plate, otp string) (*Slot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE license_plate = ? AND otp = ? AND status = 'occupied'
		ORDER BY slot_number
		LIMIT 1`, plate, otp)
	slot, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, persistenceErr("querying slot by credentials", err)
	}
	return slot, nil
}

// LatestLog returns the newest log row for the pair.
func (s *SQLiteStore) LatestLog(ctx context.Context, plate, otp string) (*ReservationLog, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+logColumns+`
		FROM reservation_logs
		WHERE license_plate = ? AND otp = ?
		ORDER BY id DESC
		LIMIT 1`, plate, otp)
	l, err := scanLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, persistenceErr("querying reservation log", err)
	}
	return l, nil
}

// SlotLog returns the newest log row for the pair on slotNumber.
func (s *SQLiteStore) SlotLog(ctx context.Context, slotNumber, plate, otp string) (*ReservationLog, error) {
	l, err := scanLog(s.db.QueryRowContext(ctx, slotLogQuery, slotNumber, plate, otp))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, persistenceErr("querying reservation log", err)
	}
	return l, nil
}

// ListLogs returns every log row.
func (s *SQLiteStore) ListLogs(ctx context.Context) ([]ReservationLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+logColumns+`
		FROM reservation_logs
		ORDER BY time_in IS NULL, time_in DESC, id DESC`)
	if err != nil {
		return nil, persistenceErr("querying reservation logs", err)
	}
	defer rows.Close()

	logs := make([]ReservationLog, 0)
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, persistenceErr("scanning reservation log", err)
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterating reservation logs", err)
	}
	return logs, nil
}

// CreateSlot adds an available slot.
func (s *SQLiteStore) CreateSlot(ctx context.Context, slotNumber string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slots (slot_number, status, updated_at) VALUES (?, 'available', ?)`,
		slotNumber, formatTime(at))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSlotExists
		}
		return persistenceErr("inserting slot", err)
	}
	return nil
}

// EnsureSlots inserts missing slots, leaving existing ones untouched.
func (s *SQLiteStore) EnsureSlots(ctx context.Context, slotNumbers []string, at time.Time) (int, error) {
	created := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO slots (slot_number, status, updated_at) VALUES (?, 'available', ?)`)
		if err != nil {
			return persistenceErr("preparing slot seed", err)
		}
		defer stmt.Close()

		ts := formatTime(at)
		for _, n := range slotNumbers {
			res, err := stmt.ExecContext(ctx, n, ts)
			if err != nil {
				return persistenceErr("seeding slot", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return persistenceErr("seeding slot", err)
			}
			created += int(affected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// Reserve occupies an available slot and opens a log row.
func (s *SQLiteStore) Reserve(ctx context.Context, slotNumber, plate, otp string, at time.Time) (*ReservationLog, error) {
	ts := formatTime(at)
	var logID int64

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE slots
			SET status = 'occupied', license_plate = ?, otp = ?, updated_at = ?
			WHERE slot_number = ? AND status = 'available'`,
			plate, otp, ts, slotNumber)
		if err != nil {
			return persistenceErr("occupying slot", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return persistenceErr("occupying slot", err)
		}
		if n == 0 {
			var exists int
			err := tx.QueryRowContext(ctx,
				`SELECT 1 FROM slots WHERE slot_number = ?`, slotNumber).Scan(&exists)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				return ErrSlotNotFound
			case err != nil:
				return persistenceErr("checking slot", err)
			default:
				return ErrSlotOccupied
			}
		}

		res, err = tx.ExecContext(ctx, `
			INSERT INTO reservation_logs (slot_number, license_plate, otp, created_at)
			VALUES (?, ?, ?, ?)`,
			slotNumber, plate, otp, ts)
		if err != nil {
			return persistenceErr("inserting reservation log", err)
		}
		logID, err = res.LastInsertId()
		if err != nil {
			return persistenceErr("inserting reservation log", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ReservationLog{
		ID:           logID,
		SlotNumber:   slotNumber,
		LicensePlate: plate,
		OTP:          otp,
		CreatedAt:    at.UTC(),
	}, nil
}

// MarkCheckedIn stamps time_in on the latest log row for the pair.
func (s *SQLiteStore) MarkCheckedIn(ctx context.Context, slotNumber, plate, otp string, at time.Time) (*ReservationLog, error) {
	ts := formatTime(at)
	var l *ReservationLog

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE slots
			SET status = 'occupied', updated_at = ?
			WHERE slot_number = ? AND license_plate = ? AND otp = ?`,
			ts, slotNumber, plate, otp)
		if err != nil {
			return persistenceErr("confirming slot", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return persistenceErr("confirming slot", err)
		}
		if n == 0 {
			return ErrUnauthorized
		}

		l, err = scanLog(tx.QueryRowContext(ctx, slotLogQuery, slotNumber, plate, otp))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrReservationNotFound
			}
			return persistenceErr("querying reservation log", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE reservation_logs SET time_in = ? WHERE id = ?`, ts, l.ID); err != nil {
			return persistenceErr("stamping check-in", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.TimeIn.SetValid(at.UTC())
	return l, nil
}

// Release frees the slot and closes the log row in one transaction.
func (s *SQLiteStore) Release(ctx context.Context, slotNumber, plate, otp string, logID int64, at time.Time) error {
	ts := formatTime(at)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE slots
			SET status = 'available', license_plate = NULL, otp = NULL, updated_at = ?
			WHERE slot_number = ? AND license_plate = ? AND otp = ?`,
			ts, slotNumber, plate, otp)
		if err != nil {
			return persistenceErr("releasing slot", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return persistenceErr("releasing slot", err)
		}
		if n == 0 {
			return ErrUnauthorized
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE reservation_logs SET time_out = ? WHERE id = ?`, ts, logID)
		if err != nil {
			return persistenceErr("stamping check-out", err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return persistenceErr("stamping check-out", err)
		}
		if n == 0 {
			return persistenceErr("stamping check-out", fmt.Errorf("log %d not found", logID))
		}
		return nil
	})
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistenceErr("beginning transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback() //nolint:errcheck // original error takes precedence
		return err
	}
	if err := tx.Commit(); err != nil {
		return persistenceErr("committing transaction", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(scanner rowScanner) (*Slot, error) {
	var slot Slot
	var status, updatedAt string

	if err := scanner.Scan(&slot.SlotNumber, &status, &slot.LicensePlate, &slot.OTP, &updatedAt); err != nil {
		return nil, err
	}
	slot.Status = SlotStatus(status)

	t, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	slot.UpdatedAt = t
	return &slot, nil
}

func scanLog(scanner rowScanner) (*ReservationLog, error) {
	var l ReservationLog
	var createdAt string
	var timeIn, timeOut sql.NullString

	if err := scanner.Scan(&l.ID, &l.SlotNumber, &l.LicensePlate, &l.OTP,
		&createdAt, &timeIn, &timeOut); err != nil {
		return nil, err
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	l.CreatedAt = t

	if timeIn.Valid {
		t, err := parseTime(timeIn.String)
		if err != nil {
			return nil, fmt.Errorf("parsing time_in: %w", err)
		}
		l.TimeIn.SetValid(t)
	}
	if timeOut.Valid {
		t, err := parseTime(timeOut.String)
		if err != nil {
			return nil, fmt.Errorf("parsing time_out: %w", err)
		}
		l.TimeOut.SetValid(t)
	}
	return &l, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// isUniqueConstraintError checks if err is a SQLite primary key or UNIQUE violation.
func isUniqueConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
