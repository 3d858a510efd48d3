package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestRecordSale_DeductsStockAndSnapshotsPrice(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock pool: %v", err)
	}
	defer mock.Close()

	soldAt := time.Date(2026, 3, 14, 20, 30, 0, 0, time.UTC)
	deviceID := "dev_1"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("update products")).
		WithArgs("ctr_1", "prd_1", 2).
		WillReturnRows(pgxmock.NewRows([]string{"name", "price"}).AddRow("Soda", int64(15000)))
	mock.ExpectExec(regexp.QuoteMeta("insert into sales")).
		WithArgs(pgxmock.AnyArg(), "ctr_1", "prd_1", "Soda", &deviceID, 2, int64(15000), int64(30000), "usr_1", soldAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s := New(mock)
	sales, err := s.RecordSale(context.Background(), RecordSaleInput{
		CenterID: "ctr_1",
		DeviceID: &deviceID,
		SoldBy:   "usr_1",
		SoldAt:   soldAt,
		Items:    []SaleItemInput{{ProductID: "prd_1", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("RecordSale returned err: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected 1 sale, got %d", len(sales))
	}
	if sales[0].ProductName != "Soda" || sales[0].UnitPrice != 15000 || sales[0].TotalPrice != 30000 {
		t.Fatalf("snapshot fields wrong: %+v", sales[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordSale_InsufficientStockAbortsWholeSale(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock pool: %v", err)
	}
	defer mock.Close()

	soldAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("update products")).
		WithArgs("ctr_1", "prd_1", 3).
		WillReturnRows(pgxmock.NewRows([]string{"name", "price"}).AddRow("Soda", int64(15000)))
	mock.ExpectExec(regexp.QuoteMeta("insert into sales")).
		WithArgs(pgxmock.AnyArg(), "ctr_1", "prd_1", "Soda", (*string)(nil), 3, int64(15000), int64(45000), "usr_1", soldAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(regexp.QuoteMeta("update products")).
		WithArgs("ctr_1", "prd_2", 99).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	s := New(mock)
	_, err = s.RecordSale(context.Background(), RecordSaleInput{
		CenterID: "ctr_1",
		SoldBy:   "usr_1",
		SoldAt:   soldAt,
		Items: []SaleItemInput{
			{ProductID: "prd_1", Quantity: 3},
			{ProductID: "prd_2", Quantity: 99},
		},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordSale_NonPositiveQuantityRejected(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	s := New(mock)
	_, err = s.RecordSale(context.Background(), RecordSaleInput{
		CenterID: "ctr_1",
		SoldBy:   "usr_1",
		SoldAt:   time.Now().UTC(),
		Items:    []SaleItemInput{{ProductID: "prd_1", Quantity: 0}},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeactivateProduct_UnknownReturnsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("update products")).
		WithArgs("ctr_1", "prd_missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	s := New(mock)
	if err := s.DeactivateProduct(context.Background(), "ctr_1", "prd_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListProducts_ActiveOnlyFlagForwarded(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock pool: %v", err)
	}
	defer mock.Close()

	cols := []string{"id", "center_id", "name", "category", "price", "stock", "is_active"}
	rows := pgxmock.NewRows(cols).
		AddRow("prd_1", "ctr_1", "Soda", "drink", int64(15000), 24, true)

	mock.ExpectQuery(regexp.QuoteMeta("from products")).
		WithArgs("ctr_1", true).
		WillReturnRows(rows)

	s := New(mock)
	products, err := s.ListProducts(context.Background(), "ctr_1", true)
	if err != nil {
		t.Fatalf("ListProducts returned err: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Soda" {
		t.Fatalf("unexpected products: %+v", products)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
