package billing

import (
	"testing"
	"time"

	"github.com/gamenethq/gamenet-pos/internal/model"
)

var t0 = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

func runningSession() *model.Session {
	return &model.Session{ID: "ses_1", DeviceID: "dev_1", StartTime: t0}
}

func TestElapsedSeconds_RunningSession(t *testing.T) {
	s := runningSession()
	if got := ElapsedSeconds(s, t0.Add(90*time.Second)); got != 90 {
		t.Fatalf("expected 90s elapsed, got %d", got)
	}
}

func TestElapsedSeconds_NeverNegative(t *testing.T) {
	s := runningSession()
	// now before start: clock skew must clamp to zero, not go negative
	if got := ElapsedSeconds(s, t0.Add(-30*time.Second)); got != 0 {
		t.Fatalf("expected 0 for now before start, got %d", got)
	}

	s.TotalPausedSeconds = 500
	if got := ElapsedSeconds(s, t0.Add(100*time.Second)); got != 0 {
		t.Fatalf("expected 0 when paused time exceeds wall time, got %d", got)
	}
}

func TestElapsedSeconds_FrozenWhilePaused(t *testing.T) {
	pausedAt := t0.Add(40 * time.Second)
	s := runningSession()
	s.IsPaused = true
	s.PausedAt = &pausedAt

	a := ElapsedSeconds(s, t0.Add(50*time.Second))
	b := ElapsedSeconds(s, t0.Add(5*time.Minute))
	if a != b {
		t.Fatalf("elapsed moved while paused: %d then %d", a, b)
	}
	if a != 40 {
		t.Fatalf("expected 40s frozen elapsed, got %d", a)
	}
}

func TestElapsedSeconds_AccountsFoldedPauses(t *testing.T) {
	s := runningSession()
	s.TotalPausedSeconds = 30
	if got := ElapsedSeconds(s, t0.Add(100*time.Second)); got != 70 {
		t.Fatalf("expected 70s active, got %d", got)
	}
}

func TestElapsedSeconds_MonotonicWhileRunning(t *testing.T) {
	s := runningSession()
	s.TotalPausedSeconds = 12
	prev := int64(-1)
	for i := 0; i <= 300; i += 7 {
		got := ElapsedSeconds(s, t0.Add(time.Duration(i)*time.Second))
		if got < prev {
			t.Fatalf("elapsed decreased from %d to %d at +%ds", prev, got, i)
		}
		prev = got
	}
}

func TestCost_RoundsUp(t *testing.T) {
	cases := []struct {
		name    string
		seconds int64
		rate    int64
		want    int64
	}{
		{"zero seconds is free", 0, 50000, 0},
		{"zero rate is free", 3600, 0, 0},
		{"one second charges at least one", 1, 50000, 14},
		{"exact hour", 3600, 50000, 50000},
		{"half hour rounds up", 1800, 50001, 25001},
		{"seventy seconds at 10 per second", 70, 36000, 700},
		{"exact multiple is not rounded past itself", 481, 36000, 4810},
		{"single second at tiny rate is never zero", 1, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Cost(tc.seconds, tc.rate); got != tc.want {
				t.Fatalf("Cost(%d, %d) = %d, want %d", tc.seconds, tc.rate, got, tc.want)
			}
		})
	}
}

func TestCost_PositiveForAnyPositiveInput(t *testing.T) {
	for _, seconds := range []int64{1, 59, 3599, 3601, 86400} {
		for _, rate := range []int64{1, 999, 50000, 120000} {
			if got := Cost(seconds, rate); got <= 0 {
				t.Fatalf("Cost(%d, %d) = %d, want > 0", seconds, rate, got)
			}
		}
	}
}

func TestPauseSpanSeconds(t *testing.T) {
	pausedAt := t0.Add(10 * time.Second)
	s := runningSession()
	s.IsPaused = true
	s.PausedAt = &pausedAt

	if got := PauseSpanSeconds(s, t0.Add(40*time.Second)); got != 30 {
		t.Fatalf("expected 30s pause span, got %d", got)
	}
	s.IsPaused = false
	s.PausedAt = nil
	if got := PauseSpanSeconds(s, t0.Add(40*time.Second)); got != 0 {
		t.Fatalf("expected 0 span for unpaused session, got %d", got)
	}
}

func TestAssembleInvoice_SumsBuffetLines(t *testing.T) {
	end := t0.Add(100 * time.Second)
	cost := int64(700)
	name := "Arman"
	sess := &model.Session{
		ID:                 "ses_1",
		DeviceID:           "dev_1",
		CustomerName:       &name,
		StartTime:          t0,
		EndTime:            &end,
		TotalPausedSeconds: 30,
		TotalCost:          &cost,
	}
	dev := &model.Device{ID: "dev_1", Name: "PS5 #2", Type: model.DevicePlaystation, HourlyRate: 36000}
	lines := []model.Sale{
		{ProductName: "Cola", Quantity: 2, UnitPrice: 15000, TotalPrice: 30000},
		{ProductName: "Chips", Quantity: 1, UnitPrice: 22000, TotalPrice: 22000},
	}

	inv := AssembleInvoice(dev, sess, lines)
	if inv.BuffetTotal != 52000 {
		t.Fatalf("expected buffet total 52000, got %d", inv.BuffetTotal)
	}
	if inv.GrandTotal != 52700 {
		t.Fatalf("expected grand total 52700, got %d", inv.GrandTotal)
	}
	if inv.DeviceCost != 700 {
		t.Fatalf("expected device cost 700, got %d", inv.DeviceCost)
	}
	if inv.TotalSeconds != 70 {
		t.Fatalf("expected 70 active seconds, got %d", inv.TotalSeconds)
	}
	if inv.CustomerName == nil || *inv.CustomerName != "Arman" {
		t.Fatalf("customer name lost: %+v", inv.CustomerName)
	}
}

func TestAssembleInvoice_NoBuffetLines(t *testing.T) {
	end := t0.Add(1 * time.Hour)
	cost := int64(50000)
	sess := &model.Session{ID: "ses_2", DeviceID: "dev_1", StartTime: t0, EndTime: &end, TotalCost: &cost}
	dev := &model.Device{ID: "dev_1", Name: "PC-01", Type: model.DevicePC, HourlyRate: 50000}

	inv := AssembleInvoice(dev, sess, nil)
	if inv.BuffetTotal != 0 {
		t.Fatalf("expected zero buffet total, got %d", inv.BuffetTotal)
	}
	if inv.GrandTotal != cost {
		t.Fatalf("expected grand total to equal device cost %d, got %d", cost, inv.GrandTotal)
	}
	if len(inv.Lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(inv.Lines))
	}
}
