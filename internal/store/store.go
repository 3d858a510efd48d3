package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gamenethq/gamenet-pos/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means a guarded write matched zero rows: another operation
	// changed the device or session state first.
	ErrConflict          = errors.New("state conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Store struct {
	db DB
}

type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

func New(db DB) *Store {
	return &Store{db: db}
}

type CreateDeviceInput struct {
	CenterID   string
	Name       string
	Type       model.DeviceType
	HourlyRate int64
}

type UpdateDeviceInput struct {
	CenterID   string
	DeviceID   string
	Name       string
	Type       model.DeviceType
	HourlyRate int64
}

type StartSessionInput struct {
	CenterID     string
	DeviceID     string
	CustomerName *string
	StartTime    time.Time
}

type FinishSessionInput struct {
	CenterID           string
	SessionID          string
	DeviceID           string
	EndTime            time.Time
	TotalPausedSeconds int64
	TotalCost          int64
}

const deviceColumns = `id, center_id, name, type, status, hourly_rate, created_at`

func (s *Store) GetDevice(ctx context.Context, centerID, deviceID string) (*model.Device, error) {
	const q = `
select ` + deviceColumns + `
from devices
where center_id = $1 and id = $2`
	var d model.Device
	if err := s.db.QueryRow(ctx, q, centerID, deviceID).Scan(
		&d.ID, &d.CenterID, &d.Name, &d.Type, &d.Status, &d.HourlyRate, &d.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDevices(ctx context.Context, centerID string) ([]model.Device, error) {
	const q = `
select ` + deviceColumns + `
from devices
where center_id = $1
order by name asc`
	rows, err := s.db.Query(ctx, q, centerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Device, 0)
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.ID, &d.CenterID, &d.Name, &d.Type, &d.Status, &d.HourlyRate, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CreateDevice(ctx context.Context, in CreateDeviceInput) (*model.Device, error) {
	id := "dev_" + uuid.NewString()
	const q = `
insert into devices (id, center_id, name, type, status, hourly_rate, created_at)
values ($1, $2, $3, $4, 'available', $5, now())
returning ` + deviceColumns
	var d model.Device
	if err := s.db.QueryRow(ctx, q, id, in.CenterID, in.Name, in.Type, in.HourlyRate).Scan(
		&d.ID, &d.CenterID, &d.Name, &d.Type, &d.Status, &d.HourlyRate, &d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) UpdateDevice(ctx context.Context, in UpdateDeviceInput) (*model.Device, error) {
	const q = `
update devices
set name = $3, type = $4, hourly_rate = $5
where center_id = $1 and id = $2
returning ` + deviceColumns
	var d model.Device
	if err := s.db.QueryRow(ctx, q, in.CenterID, in.DeviceID, in.Name, in.Type, in.HourlyRate).Scan(
		&d.ID, &d.CenterID, &d.Name, &d.Type, &d.Status, &d.HourlyRate, &d.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// DeleteDevice refuses to remove an occupied device; the status predicate
// makes the check race-free.
func (s *Store) DeleteDevice(ctx context.Context, centerID, deviceID string) error {
	const q = `
delete from devices
where center_id = $1 and id = $2 and status <> 'occupied'`
	tag, err := s.db.Exec(ctx, q, centerID, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// SetDeviceStatus transitions a device from one status to another. The `from`
// predicate is the optimistic guard: a concurrent transition leaves zero rows
// matched and the caller gets ErrConflict instead of a silent overwrite.
func (s *Store) SetDeviceStatus(ctx context.Context, centerID, deviceID string, from, to model.DeviceStatus) error {
	const q = `
update devices
set status = $4
where center_id = $1 and id = $2 and status = $3`
	tag, err := s.db.Exec(ctx, q, centerID, deviceID, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

const sessionColumns = `id, center_id, device_id, customer_name, start_time, end_time, is_paused, paused_at, total_paused_seconds, total_cost`

func scanSession(row pgx.Row) (*model.Session, error) {
	var sess model.Session
	if err := row.Scan(
		&sess.ID, &sess.CenterID, &sess.DeviceID, &sess.CustomerName, &sess.StartTime,
		&sess.EndTime, &sess.IsPaused, &sess.PausedAt, &sess.TotalPausedSeconds, &sess.TotalCost,
	); err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetOpenSession returns the device's unterminated session, or nil when the
// device is idle. At most one open session per device exists by invariant.
func (s *Store) GetOpenSession(ctx context.Context, centerID, deviceID string) (*model.Session, error) {
	const q = `
select ` + sessionColumns + `
from sessions
where center_id = $1 and device_id = $2 and end_time is null
order by start_time desc
limit 1`
	sess, err := scanSession(s.db.QueryRow(ctx, q, centerID, deviceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

func (s *Store) ListOpenSessions(ctx context.Context, centerID string) ([]model.Session, error) {
	const q = `
select ` + sessionColumns + `
from sessions
where center_id = $1 and end_time is null`
	rows, err := s.db.Query(ctx, q, centerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Session, 0)
	for rows.Next() {
		var sess model.Session
		if err := rows.Scan(
			&sess.ID, &sess.CenterID, &sess.DeviceID, &sess.CustomerName, &sess.StartTime,
			&sess.EndTime, &sess.IsPaused, &sess.PausedAt, &sess.TotalPausedSeconds, &sess.TotalCost,
		); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) GetSession(ctx context.Context, centerID, sessionID string) (*model.Session, error) {
	const q = `
select ` + sessionColumns + `
from sessions
where center_id = $1 and id = $2`
	sess, err := scanSession(s.db.QueryRow(ctx, q, centerID, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// StartSession creates a session and flips the device to occupied in one
// transaction. Both writes are guarded: the insert is conditioned on no open
// session existing for the device, and the status update on the device still
// being available. Either guard failing aborts the whole start.
func (s *Store) StartSession(ctx context.Context, in StartSessionInput) (*model.Session, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	id := "ses_" + uuid.NewString()
	const insertQ = `
insert into sessions
  (id, center_id, device_id, customer_name, start_time, is_paused, total_paused_seconds)
select $1, $2, $3, $4, $5, false, 0
where not exists (
  select 1 from sessions where center_id = $2 and device_id = $3 and end_time is null
)`
	tag, err := tx.Exec(ctx, insertQ, id, in.CenterID, in.DeviceID, in.CustomerName, in.StartTime)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrConflict
	}

	const statusQ = `
update devices
set status = 'occupied'
where center_id = $1 and id = $2 and status = 'available'`
	tag, err = tx.Exec(ctx, statusQ, in.CenterID, in.DeviceID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &model.Session{
		ID:           id,
		CenterID:     in.CenterID,
		DeviceID:     in.DeviceID,
		CustomerName: in.CustomerName,
		StartTime:    in.StartTime,
	}, nil
}

// PauseSession freezes cost accrual. Guarded on the session still being open
// and running, so a racing pause or stop fails closed.
func (s *Store) PauseSession(ctx context.Context, centerID, sessionID string, pausedAt time.Time) error {
	const q = `
update sessions
set is_paused = true, paused_at = $3
where center_id = $1 and id = $2 and end_time is null and is_paused = false`
	tag, err := s.db.Exec(ctx, q, centerID, sessionID, pausedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// ResumeSession folds the finished pause span into the running total and
// clears the pause marker. total_paused_seconds only ever grows.
func (s *Store) ResumeSession(ctx context.Context, centerID, sessionID string, additionalPausedSeconds int64) error {
	const q = `
update sessions
set is_paused = false, paused_at = null,
    total_paused_seconds = total_paused_seconds + $3
where center_id = $1 and id = $2 and end_time is null and is_paused = true`
	tag, err := s.db.Exec(ctx, q, centerID, sessionID, additionalPausedSeconds)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// FinishSession writes the terminal session fields and releases the device in
// one transaction. The `end_time is null` predicate makes a double stop
// impossible: the loser of the race matches zero rows.
func (s *Store) FinishSession(ctx context.Context, in FinishSessionInput) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const sessionQ = `
update sessions
set end_time = $3, total_paused_seconds = $4, total_cost = $5,
    is_paused = false, paused_at = null
where center_id = $1 and id = $2 and end_time is null`
	tag, err := tx.Exec(ctx, sessionQ, in.CenterID, in.SessionID, in.EndTime, in.TotalPausedSeconds, in.TotalCost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	const statusQ = `
update devices
set status = 'available'
where center_id = $1 and id = $2 and status = 'occupied'`
	tag, err = tx.Exec(ctx, statusQ, in.CenterID, in.DeviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	return tx.Commit(ctx)
}

func (s *Store) UpdateSessionCustomer(ctx context.Context, centerID, sessionID string, customerName *string) error {
	const q = `
update sessions
set customer_name = $3
where center_id = $1 and id = $2 and end_time is null`
	tag, err := s.db.Exec(ctx, q, centerID, sessionID, customerName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SalesForWindow returns the buffet lines attributed to a device inside a
// session's [start, end] window, the invoice assembler's only query.
func (s *Store) SalesForWindow(ctx context.Context, centerID, deviceID string, from, to time.Time) ([]model.Sale, error) {
	const q = `
select ` + saleColumns + `
from sales
where center_id = $1 and device_id = $2 and created_at >= $3 and created_at <= $4
order by created_at asc`
	rows, err := s.db.Query(ctx, q, centerID, deviceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSales(rows)
}
