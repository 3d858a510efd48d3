// Package billing holds the pure session accounting rules: elapsed active
// time, device cost, and invoice assembly. Nothing here touches the store or
// the wall clock; callers pass `now` in.
package billing

import (
	"math"
	"time"

	"github.com/gamenethq/gamenet-pos/internal/model"
)

// ElapsedSeconds returns the active (unpaused) seconds of a session as of
// now. A pause in progress counts live: the span since PausedAt is excluded
// even though it has not been folded into TotalPausedSeconds yet. The result
// is clamped at zero so clock skew can never produce a negative duration.
func ElapsedSeconds(s *model.Session, now time.Time) int64 {
	paused := s.TotalPausedSeconds
	if s.IsPaused && s.PausedAt != nil {
		paused += floorSeconds(now.Sub(*s.PausedAt))
	}
	elapsed := floorSeconds(now.Sub(s.StartTime)) - paused
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Cost converts active seconds into a charge at the given hourly rate,
// rounding up to the next whole unit. A one-second session at any positive
// rate is charged at least 1; zero seconds is free.
func Cost(elapsedSeconds, hourlyRate int64) int64 {
	if elapsedSeconds <= 0 || hourlyRate <= 0 {
		return 0
	}
	// Integer ceil. Float division can land one ulp above an exact multiple
	// and overcharge by a whole unit after rounding up.
	return (elapsedSeconds*hourlyRate + 3599) / 3600
}

// PauseSpanSeconds is the whole seconds a currently-paused session has been
// sitting at PausedAt. Resume and stop use it to grow TotalPausedSeconds.
func PauseSpanSeconds(s *model.Session, now time.Time) int64 {
	if !s.IsPaused || s.PausedAt == nil {
		return 0
	}
	span := floorSeconds(now.Sub(*s.PausedAt))
	if span < 0 {
		return 0
	}
	return span
}

// AssembleInvoice joins a closed session with the buffet sales recorded on
// its device during [StartTime, EndTime]. The session must carry its final
// EndTime and TotalCost.
func AssembleInvoice(device *model.Device, session *model.Session, lines []model.Sale) *model.Invoice {
	var buffetTotal int64
	for _, l := range lines {
		buffetTotal += l.TotalPrice
	}
	var deviceCost int64
	if session.TotalCost != nil {
		deviceCost = *session.TotalCost
	}
	endTime := session.StartTime
	if session.EndTime != nil {
		endTime = *session.EndTime
	}
	return &model.Invoice{
		SessionID:    session.ID,
		DeviceName:   device.Name,
		DeviceType:   device.Type,
		CustomerName: session.CustomerName,
		StartTime:    session.StartTime,
		EndTime:      endTime,
		TotalSeconds: ElapsedSeconds(session, endTime),
		HourlyRate:   device.HourlyRate,
		DeviceCost:   deviceCost,
		Lines:        lines,
		BuffetTotal:  buffetTotal,
		GrandTotal:   deviceCost + buffetTotal,
	}
}

func floorSeconds(d time.Duration) int64 {
	return int64(math.Floor(d.Seconds()))
}
