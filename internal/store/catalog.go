package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gamenethq/gamenet-pos/internal/model"
)

type CreateProductInput struct {
	CenterID string
	Name     string
	Category string
	Price    int64
	Stock    int
}

type UpdateProductInput struct {
	CenterID  string
	ProductID string
	Name      string
	Category  string
	Price     int64
	Stock     int
}

type SaleItemInput struct {
	ProductID string
	Quantity  int
}

type RecordSaleInput struct {
	CenterID string
	DeviceID *string
	SoldBy   string
	SoldAt   time.Time
	Items    []SaleItemInput
}

const productColumns = `id, center_id, name, category, price, stock, is_active`

func (s *Store) ListProducts(ctx context.Context, centerID string, activeOnly bool) ([]model.Product, error) {
	const q = `
select ` + productColumns + `
from products
where center_id = $1 and (is_active or not $2)
order by category asc, name asc`
	rows, err := s.db.Query(ctx, q, centerID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Product, 0)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.CenterID, &p.Name, &p.Category, &p.Price, &p.Stock, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreateProduct(ctx context.Context, in CreateProductInput) (*model.Product, error) {
	id := "prd_" + uuid.NewString()
	const q = `
insert into products (id, center_id, name, category, price, stock, is_active)
values ($1, $2, $3, $4, $5, $6, true)
returning ` + productColumns
	var p model.Product
	if err := s.db.QueryRow(ctx, q, id, in.CenterID, in.Name, in.Category, in.Price, in.Stock).Scan(
		&p.ID, &p.CenterID, &p.Name, &p.Category, &p.Price, &p.Stock, &p.Active,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, in UpdateProductInput) (*model.Product, error) {
	const q = `
update products
set name = $3, category = $4, price = $5, stock = $6
where center_id = $1 and id = $2 and is_active
returning ` + productColumns
	var p model.Product
	if err := s.db.QueryRow(ctx, q, in.CenterID, in.ProductID, in.Name, in.Category, in.Price, in.Stock).Scan(
		&p.ID, &p.CenterID, &p.Name, &p.Category, &p.Price, &p.Stock, &p.Active,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// DeactivateProduct hides a product from sale. Rows are kept because sales
// history references them.
func (s *Store) DeactivateProduct(ctx context.Context, centerID, productID string) error {
	const q = `
update products
set is_active = false
where center_id = $1 and id = $2 and is_active`
	tag, err := s.db.Exec(ctx, q, centerID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordSale writes one sale row per item and deducts stock in the same
// transaction. The stock predicate on the update doubles as the availability
// check: quantity exceeding stock matches zero rows and the sale aborts.
// Name and price are snapshotted off the returning clause so the line item
// survives later product edits.
func (s *Store) RecordSale(ctx context.Context, in RecordSaleInput) ([]model.Sale, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const deductQ = `
update products
set stock = stock - $3
where center_id = $1 and id = $2 and is_active and stock >= $3
returning name, price`
	const insertQ = `
insert into sales
  (id, center_id, product_id, product_name, device_id, quantity, unit_price, total_price, sold_by, created_at)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	out := make([]model.Sale, 0, len(in.Items))
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, ErrInsufficientStock
		}
		var name string
		var price int64
		if err := tx.QueryRow(ctx, deductQ, in.CenterID, item.ProductID, item.Quantity).Scan(&name, &price); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInsufficientStock
			}
			return nil, err
		}

		sale := model.Sale{
			ID:          "sal_" + uuid.NewString(),
			CenterID:    in.CenterID,
			ProductID:   item.ProductID,
			ProductName: name,
			DeviceID:    in.DeviceID,
			Quantity:    item.Quantity,
			UnitPrice:   price,
			TotalPrice:  price * int64(item.Quantity),
			SoldBy:      in.SoldBy,
			CreatedAt:   in.SoldAt,
		}
		if _, err := tx.Exec(ctx, insertQ,
			sale.ID, sale.CenterID, sale.ProductID, sale.ProductName, sale.DeviceID,
			sale.Quantity, sale.UnitPrice, sale.TotalPrice, sale.SoldBy, sale.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, sale)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

const saleColumns = `id, center_id, product_id, product_name, device_id, quantity, unit_price, total_price, sold_by, created_at`

func collectSales(rows pgx.Rows) ([]model.Sale, error) {
	out := make([]model.Sale, 0)
	for rows.Next() {
		var sale model.Sale
		if err := rows.Scan(
			&sale.ID, &sale.CenterID, &sale.ProductID, &sale.ProductName, &sale.DeviceID,
			&sale.Quantity, &sale.UnitPrice, &sale.TotalPrice, &sale.SoldBy, &sale.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}

func (s *Store) ListSales(ctx context.Context, centerID string, limit int) ([]model.Sale, error) {
	const q = `
select ` + saleColumns + `
from sales
where center_id = $1
order by created_at desc
limit $2`
	rows, err := s.db.Query(ctx, q, centerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSales(rows)
}
