package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type mockJobStore struct {
	rollupCh   chan struct{}
	cleanupCh  chan time.Time
	lowStockCh chan int
	rollupErr  error
}

func (m *mockJobStore) RollupDailyRevenue(context.Context) error {
	m.rollupCh <- struct{}{}
	return m.rollupErr
}

func (m *mockJobStore) CleanupReadNotifications(_ context.Context, before time.Time) error {
	m.cleanupCh <- before
	return nil
}

func (m *mockJobStore) NotifyLowStock(_ context.Context, threshold int) error {
	m.lowStockCh <- threshold
	return nil
}

func TestRunner_RunsEveryJobOnceAtStartup(t *testing.T) {
	ms := &mockJobStore{
		rollupCh:   make(chan struct{}, 1),
		cleanupCh:  make(chan time.Time, 1),
		lowStockCh: make(chan int, 1),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	NewRunner(ms, 5, zerolog.Nop()).Start(ctx)

	deadline := time.After(2 * time.Second)
	select {
	case <-ms.rollupCh:
	case <-deadline:
		t.Fatal("revenue rollup never ran")
	}
	select {
	case before := <-ms.cleanupCh:
		if time.Since(before) < 29*24*time.Hour {
			t.Fatalf("cleanup cutoff too recent: %s", before)
		}
	case <-deadline:
		t.Fatal("notification cleanup never ran")
	}
	select {
	case threshold := <-ms.lowStockCh:
		if threshold != 5 {
			t.Fatalf("expected threshold 5, got %d", threshold)
		}
	case <-deadline:
		t.Fatal("low stock scan never ran")
	}
}

func TestRunner_JobErrorDoesNotStopOthers(t *testing.T) {
	ms := &mockJobStore{
		rollupCh:   make(chan struct{}, 1),
		cleanupCh:  make(chan time.Time, 1),
		lowStockCh: make(chan int, 1),
		rollupErr:  errors.New("db unavailable"),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	NewRunner(ms, 5, zerolog.Nop()).Start(ctx)

	deadline := time.After(2 * time.Second)
	for i := 0; i < 3; i++ {
		select {
		case <-ms.rollupCh:
		case <-ms.cleanupCh:
		case <-ms.lowStockCh:
		case <-deadline:
			t.Fatal("not all jobs ran")
		}
	}
}
