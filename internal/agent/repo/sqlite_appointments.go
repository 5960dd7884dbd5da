package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chative/appointment-assistant/internal/agent/model"
	errx "github.com/chative/appointment-assistant/internal/core/error"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS appointments (
	seq          INTEGER PRIMARY KEY,
	id           TEXT NOT NULL UNIQUE,
	patient_name TEXT NOT NULL,
	patient_id   TEXT NOT NULL,
	date         TEXT NOT NULL,
	time         TEXT NOT NULL,
	doctor       TEXT NOT NULL,
	department   TEXT NOT NULL,
	type         TEXT NOT NULL,
	status       TEXT NOT NULL,
	phone        TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	booked_at    TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS slots (
	position   INTEGER PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	date       TEXT NOT NULL,
	time       TEXT NOT NULL,
	doctor     TEXT NOT NULL,
	department TEXT NOT NULL,
	type       TEXT NOT NULL
);`

const appointmentColumns = `id, patient_name, patient_id, date, time, doctor, department, type, status, phone, email, booked_at`

// OpenSQLite opens (creating if needed) the database at path. ":memory:" is
// accepted for tests.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// single writer; also keeps an in-memory database on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return db, nil
}

// SQLiteAppointmentRepository persists appointments in SQLite. Every
// read-then-write runs inside one transaction.
type SQLiteAppointmentRepository struct {
	db *sql.DB
}

// NewSQLiteAppointmentRepository creates the schema if missing.
func NewSQLiteAppointmentRepository(ctx context.Context, db *sql.DB) (*SQLiteAppointmentRepository, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteAppointmentRepository{db: db}, nil
}

// Seed inserts apts and slots into empty tables.
func (r *SQLiteAppointmentRepository) Seed(ctx context.Context, apts []model.Appointment, slots []model.Slot) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			for _, a := range apts {
				a.ID = model.NormalizeID(a.ID)
				if err := insertAppointment(ctx, tx, appointmentSeq(a.ID), a); err != nil {
					return err
				}
			}
		}

		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM slots`).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			for i, s := range slots {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO slots (position, id, date, time, doctor, department, type) VALUES (?, ?, ?, ?, ?, ?, ?)`,
					i+1, model.NormalizeID(s.ID), s.Date, s.Time, s.Doctor, s.Department, s.Type)
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (r *SQLiteAppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, model.NormalizeID(id))
	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Appointment{}, model.ErrAppointmentNotFound
	}
	if err != nil {
		logx.Error().Err(err).Str("appointment_id", id).Msg("failed to load appointment from sqlite")
		return model.Appointment{}, errx.WrapSQL(err)
	}
	return a, nil
}

func (r *SQLiteAppointmentRepository) List(ctx context.Context) ([]model.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY seq`)
	if err != nil {
		logx.Error().Err(err).Msg("failed to list appointments from sqlite")
		return nil, errx.WrapSQL(err)
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, errx.WrapSQL(err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapSQL(err)
	}
	return out, nil
}

func (r *SQLiteAppointmentRepository) Insert(ctx context.Context, apt model.Appointment) (model.Appointment, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var seq int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM appointments`).Scan(&seq); err != nil {
			return err
		}
		apt.ID = formatAppointmentID(seq)
		return insertAppointment(ctx, tx, seq, apt)
	})
	if err != nil {
		logx.Error().Err(err).Msg("failed to insert appointment into sqlite")
		return model.Appointment{}, errx.WrapSQL(err)
	}
	return apt, nil
}

func (r *SQLiteAppointmentRepository) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) (model.Appointment, error) {
	return r.transition(ctx, id, `UPDATE appointments SET status = ? WHERE id = ?`, string(status))
}

func (r *SQLiteAppointmentRepository) UpdateDateTime(ctx context.Context, id, date, time string) (model.Appointment, error) {
	return r.transition(ctx, id, `UPDATE appointments SET date = ?, time = ?, status = ? WHERE id = ?`,
		date, time, string(model.StatusRescheduled))
}

func (r *SQLiteAppointmentRepository) transition(ctx context.Context, id, stmt string, args ...any) (model.Appointment, error) {
	id = model.NormalizeID(id)
	var prev model.Appointment
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
		cur, err := scanAppointment(row)
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrAppointmentNotFound
		}
		if err != nil {
			return err
		}
		prev = cur
		if cur.Cancelled() {
			return model.ErrAppointmentCancelled
		}
		_, err = tx.ExecContext(ctx, stmt, append(args, id)...)
		return err
	})
	switch {
	case err == nil:
		return prev, nil
	case errors.Is(err, model.ErrAppointmentNotFound):
		return model.Appointment{}, err
	case errors.Is(err, model.ErrAppointmentCancelled):
		return prev, err
	}
	logx.Error().Err(err).Str("appointment_id", id).Msg("failed to update appointment in sqlite")
	return model.Appointment{}, errx.WrapSQL(err)
}

func (r *SQLiteAppointmentRepository) Slots(ctx context.Context) ([]model.Slot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, date, time, doctor, department, type FROM slots ORDER BY position`)
	if err != nil {
		logx.Error().Err(err).Msg("failed to list slots from sqlite")
		return nil, errx.WrapSQL(err)
	}
	defer rows.Close()

	out := []model.Slot{}
	for rows.Next() {
		var s model.Slot
		if err := rows.Scan(&s.ID, &s.Date, &s.Time, &s.Doctor, &s.Department, &s.Type); err != nil {
			return nil, errx.WrapSQL(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapSQL(err)
	}
	return out, nil
}

func (r *SQLiteAppointmentRepository) Slot(ctx context.Context, id string) (model.Slot, error) {
	var s model.Slot
	err := r.db.QueryRowContext(ctx,
		`SELECT id, date, time, doctor, department, type FROM slots WHERE id = ?`, model.NormalizeID(id)).
		Scan(&s.ID, &s.Date, &s.Time, &s.Doctor, &s.Department, &s.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Slot{}, model.ErrSlotNotFound
	}
	if err != nil {
		return model.Slot{}, errx.WrapSQL(err)
	}
	return s, nil
}

func (r *SQLiteAppointmentRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var (
		a        model.Appointment
		status   string
		bookedAt string
	)
	err := row.Scan(&a.ID, &a.PatientName, &a.PatientID, &a.Date, &a.Time, &a.Doctor,
		&a.Department, &a.Type, &status, &a.Phone, &a.Email, &bookedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Status = model.AppointmentStatus(status)
	if bookedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, bookedAt); err == nil {
			a.BookedAt = t
		}
	}
	return a, nil
}

func insertAppointment(ctx context.Context, tx *sql.Tx, seq int64, a model.Appointment) error {
	bookedAt := ""
	if !a.BookedAt.IsZero() {
		bookedAt = a.BookedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO appointments (seq, `+appointmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seq, a.ID, a.PatientName, a.PatientID, a.Date, a.Time, a.Doctor, a.Department, a.Type,
		string(a.Status), a.Phone, a.Email, bookedAt)
	return err
}

var _ model.AppointmentRepository = (*SQLiteAppointmentRepository)(nil)
