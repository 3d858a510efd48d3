// Package lifecycle enforces the device/session state machine: which
// transitions are legal from which state, and what gets written when one
// fires. All timing math is delegated to the billing package; all writes go
// through guarded store operations so lost races surface as errors here
// instead of corrupting billing state.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gamenethq/gamenet-pos/internal/billing"
	"github.com/gamenethq/gamenet-pos/internal/metrics"
	"github.com/gamenethq/gamenet-pos/internal/model"
	"github.com/gamenethq/gamenet-pos/internal/store"
)

var (
	// ErrInvalidTransition: the requested transition is illegal from the
	// device's current state, e.g. start on an occupied device.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNoActiveSession: pause or stop found no open session for the device.
	ErrNoActiveSession = errors.New("no active session")
	// ErrDeviceBusy: delete or maintenance toggle attempted while occupied.
	ErrDeviceBusy = errors.New("device busy")
)

type Store interface {
	GetDevice(ctx context.Context, centerID, deviceID string) (*model.Device, error)
	GetOpenSession(ctx context.Context, centerID, deviceID string) (*model.Session, error)
	StartSession(ctx context.Context, in store.StartSessionInput) (*model.Session, error)
	PauseSession(ctx context.Context, centerID, sessionID string, pausedAt time.Time) error
	ResumeSession(ctx context.Context, centerID, sessionID string, additionalPausedSeconds int64) error
	FinishSession(ctx context.Context, in store.FinishSessionInput) error
	SetDeviceStatus(ctx context.Context, centerID, deviceID string, from, to model.DeviceStatus) error
	DeleteDevice(ctx context.Context, centerID, deviceID string) error
	SalesForWindow(ctx context.Context, centerID, deviceID string, from, to time.Time) ([]model.Sale, error)
	InsertNotification(ctx context.Context, centerID string, kind model.NotificationKind, message string, at time.Time) error
}

type Manager struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

func NewManager(st Store, now func() time.Time, log zerolog.Logger) *Manager {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Manager{store: st, now: now, log: log}
}

// Start opens a session on an available device. Occupied and maintenance
// devices reject the transition; a concurrent start loses the store-level
// guard and reports the same error.
func (m *Manager) Start(ctx context.Context, centerID, deviceID string, customerName *string) (*model.Session, error) {
	dev, err := m.store.GetDevice(ctx, centerID, deviceID)
	if err != nil {
		return nil, err
	}
	if dev.Status != model.DeviceAvailable {
		return nil, fmt.Errorf("%w: device is %s", ErrInvalidTransition, dev.Status)
	}

	sess, err := m.store.StartSession(ctx, store.StartSessionInput{
		CenterID:     centerID,
		DeviceID:     deviceID,
		CustomerName: customerName,
		StartTime:    m.now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("%w: device already has an open session", ErrInvalidTransition)
		}
		return nil, err
	}

	metrics.SessionsStarted.WithLabelValues(string(dev.Type)).Inc()
	m.log.Info().Str("device_id", deviceID).Str("session_id", sess.ID).Msg("session started")
	return sess, nil
}

// TogglePause pauses a running session or resumes a paused one. Resume folds
// the just-finished pause span into total_paused_seconds; the counter never
// decreases.
func (m *Manager) TogglePause(ctx context.Context, centerID, deviceID string) (*model.Session, error) {
	sess, err := m.openSession(ctx, centerID, deviceID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if sess.IsPaused {
		additional := billing.PauseSpanSeconds(sess, now)
		if err := m.store.ResumeSession(ctx, centerID, sess.ID, additional); err != nil {
			return nil, mapConflict(err, ErrNoActiveSession)
		}
		sess.IsPaused = false
		sess.PausedAt = nil
		sess.TotalPausedSeconds += additional
		m.log.Info().Str("session_id", sess.ID).Int64("paused_seconds", additional).Msg("session resumed")
	} else {
		if err := m.store.PauseSession(ctx, centerID, sess.ID, now); err != nil {
			return nil, mapConflict(err, ErrNoActiveSession)
		}
		sess.IsPaused = true
		sess.PausedAt = &now
		m.log.Info().Str("session_id", sess.ID).Msg("session paused")
	}
	return sess, nil
}

// Stop terminates the device's open session and produces its invoice. A
// session stopped while paused is not charged for the paused tail: the
// in-progress pause is folded into the total before the cost is computed.
func (m *Manager) Stop(ctx context.Context, centerID, deviceID string) (*model.Invoice, error) {
	dev, err := m.store.GetDevice(ctx, centerID, deviceID)
	if err != nil {
		return nil, err
	}
	sess, err := m.openSession(ctx, centerID, deviceID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	totalPaused := sess.TotalPausedSeconds + billing.PauseSpanSeconds(sess, now)

	final := *sess
	final.IsPaused = false
	final.PausedAt = nil
	final.TotalPausedSeconds = totalPaused
	elapsed := billing.ElapsedSeconds(&final, now)
	cost := billing.Cost(elapsed, dev.HourlyRate)

	if err := m.store.FinishSession(ctx, store.FinishSessionInput{
		CenterID:           centerID,
		SessionID:          sess.ID,
		DeviceID:           deviceID,
		EndTime:            now,
		TotalPausedSeconds: totalPaused,
		TotalCost:          cost,
	}); err != nil {
		return nil, mapConflict(err, ErrNoActiveSession)
	}

	final.EndTime = &now
	final.TotalCost = &cost

	lines, err := m.store.SalesForWindow(ctx, centerID, deviceID, sess.StartTime, now)
	if err != nil {
		return nil, err
	}
	inv := billing.AssembleInvoice(dev, &final, lines)

	metrics.SessionsStopped.WithLabelValues(string(dev.Type)).Inc()
	metrics.SessionRevenue.WithLabelValues(string(dev.Type)).Add(float64(cost))
	metrics.SessionActiveSeconds.Observe(float64(elapsed))

	msg := fmt.Sprintf("%s session ended, total %d", dev.Name, inv.GrandTotal)
	if err := m.store.InsertNotification(ctx, centerID, model.NotificationSessionStopped, msg, now); err != nil {
		m.log.Warn().Err(err).Str("session_id", sess.ID).Msg("stop notification not recorded")
	}

	m.log.Info().
		Str("device_id", deviceID).
		Str("session_id", sess.ID).
		Int64("active_seconds", elapsed).
		Int64("device_cost", cost).
		Int64("grand_total", inv.GrandTotal).
		Msg("session stopped")
	return inv, nil
}

// ToggleMaintenance flips a device between available and maintenance. An
// occupied device must be stopped first.
func (m *Manager) ToggleMaintenance(ctx context.Context, centerID, deviceID string) (model.DeviceStatus, error) {
	dev, err := m.store.GetDevice(ctx, centerID, deviceID)
	if err != nil {
		return "", err
	}
	var target model.DeviceStatus
	switch dev.Status {
	case model.DeviceAvailable:
		target = model.DeviceMaintenance
	case model.DeviceMaintenance:
		target = model.DeviceAvailable
	default:
		return "", ErrDeviceBusy
	}
	if err := m.store.SetDeviceStatus(ctx, centerID, deviceID, dev.Status, target); err != nil {
		return "", mapConflict(err, ErrDeviceBusy)
	}
	return target, nil
}

// Delete removes a device that is not currently occupied.
func (m *Manager) Delete(ctx context.Context, centerID, deviceID string) error {
	dev, err := m.store.GetDevice(ctx, centerID, deviceID)
	if err != nil {
		return err
	}
	if dev.Status == model.DeviceOccupied {
		return ErrDeviceBusy
	}
	if err := m.store.DeleteDevice(ctx, centerID, deviceID); err != nil {
		return mapConflict(err, ErrDeviceBusy)
	}
	return nil
}

func (m *Manager) openSession(ctx context.Context, centerID, deviceID string) (*model.Session, error) {
	sess, err := m.store.GetOpenSession(ctx, centerID, deviceID)
	if err != nil {
		return nil, err
	}
	if !sess.Open() {
		return nil, ErrNoActiveSession
	}
	return sess, nil
}

func mapConflict(err, to error) error {
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%w: state changed concurrently", to)
	}
	return err
}
