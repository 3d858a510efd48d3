package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/gamenethq/gamenet-pos/internal/model"
)

func TestGetDefaultRates_MissingRowReturnsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("from center_rates")).
		WithArgs("ctr_1").
		WillReturnError(pgx.ErrNoRows)

	s := New(mock)
	if _, err := s.GetDefaultRates(context.Background(), "ctr_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertDefaultRates_WritesAllThree(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("insert into center_rates")).
		WithArgs("ctr_1", int64(50000), int64(80000), int64(120000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := New(mock)
	err = s.UpsertDefaultRates(context.Background(), "ctr_1", model.DefaultRates{
		PC:          50000,
		Playstation: 80000,
		Billiard:    120000,
	})
	if err != nil {
		t.Fatalf("UpsertDefaultRates returned err: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevenueSummary_DerivesTotalsAndAverage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("from revenue_days")).
		WithArgs("ctr_1", 7).
		WillReturnRows(pgxmock.NewRows([]string{"devices", "buffet"}).AddRow(int64(700000), int64(140000)))

	s := New(mock)
	out, err := s.RevenueSummary(context.Background(), "ctr_1", 7)
	if err != nil {
		t.Fatalf("RevenueSummary returned err: %v", err)
	}
	if out.TotalRevenue != 840000 {
		t.Fatalf("unexpected total: %d", out.TotalRevenue)
	}
	if out.AverageDaily != 120000 {
		t.Fatalf("unexpected average: %d", out.AverageDaily)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRollupJobsExecute(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock pool: %v", err)
	}
	defer mock.Close()

	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("insert into revenue_days")).
		WillReturnResult(pgxmock.NewResult("INSERT", 3))
	mock.ExpectExec(regexp.QuoteMeta("delete from notifications")).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(regexp.QuoteMeta("insert into notifications")).
		WithArgs(5).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := New(mock)
	if err := s.RollupDailyRevenue(context.Background()); err != nil {
		t.Fatalf("RollupDailyRevenue returned err: %v", err)
	}
	if err := s.CleanupReadNotifications(context.Background(), cutoff); err != nil {
		t.Fatalf("CleanupReadNotifications returned err: %v", err)
	}
	if err := s.NotifyLowStock(context.Background(), 5); err != nil {
		t.Fatalf("NotifyLowStock returned err: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
