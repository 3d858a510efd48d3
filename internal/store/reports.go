package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gamenethq/gamenet-pos/internal/model"
)

func (s *Store) GetDefaultRates(ctx context.Context, centerID string) (*model.DefaultRates, error) {
	const q = `
select pc_rate, playstation_rate, billiard_rate
from center_rates
where center_id = $1`
	var r model.DefaultRates
	if err := s.db.QueryRow(ctx, q, centerID).Scan(&r.PC, &r.Playstation, &r.Billiard); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) UpsertDefaultRates(ctx context.Context, centerID string, rates model.DefaultRates) error {
	const q = `
insert into center_rates (center_id, pc_rate, playstation_rate, billiard_rate, updated_at)
values ($1, $2, $3, $4, now())
on conflict (center_id)
do update set
  pc_rate = excluded.pc_rate,
  playstation_rate = excluded.playstation_rate,
  billiard_rate = excluded.billiard_rate,
  updated_at = now()`
	_, err := s.db.Exec(ctx, q, centerID, rates.PC, rates.Playstation, rates.Billiard)
	return err
}

func (s *Store) InsertNotification(ctx context.Context, centerID string, kind model.NotificationKind, message string, at time.Time) error {
	const q = `
insert into notifications (id, center_id, kind, message, is_read, created_at)
values ($1, $2, $3, $4, false, $5)`
	_, err := s.db.Exec(ctx, q, "ntf_"+uuid.NewString(), centerID, kind, message, at)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, centerID string, limit int) ([]model.Notification, error) {
	const q = `
select id, center_id, kind, message, is_read, created_at
from notifications
where center_id = $1
order by created_at desc
limit $2`
	rows, err := s.db.Query(ctx, q, centerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.CenterID, &n.Kind, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, centerID, notificationID string) error {
	const q = `
update notifications
set is_read = true
where center_id = $1 and id = $2`
	tag, err := s.db.Exec(ctx, q, centerID, notificationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DailyRevenue returns the per-day device/buffet split for the trailing
// window, read from the rollup rows the jobs worker maintains.
func (s *Store) DailyRevenue(ctx context.Context, centerID string, days int) ([]model.DailyRevenue, error) {
	const q = `
select day, devices_revenue, buffet_revenue
from revenue_days
where center_id = $1 and day >= current_date - ($2::int - 1)
order by day asc`
	rows, err := s.db.Query(ctx, q, centerID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.DailyRevenue, 0)
	for rows.Next() {
		var r model.DailyRevenue
		if err := rows.Scan(&r.Day, &r.DevicesRevenue, &r.BuffetRevenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) RevenueSummary(ctx context.Context, centerID string, days int) (*model.RevenueSummary, error) {
	const q = `
select
  coalesce(sum(devices_revenue), 0),
  coalesce(sum(buffet_revenue), 0)
from revenue_days
where center_id = $1 and day >= current_date - ($2::int - 1)`
	var out model.RevenueSummary
	if err := s.db.QueryRow(ctx, q, centerID, days).Scan(&out.DevicesRevenue, &out.BuffetRevenue); err != nil {
		return nil, err
	}
	out.TotalRevenue = out.DevicesRevenue + out.BuffetRevenue
	if days > 0 {
		out.AverageDaily = out.TotalRevenue / int64(days)
	}
	return &out, nil
}

func (s *Store) RevenueByDeviceType(ctx context.Context, centerID string, days int) ([]model.DeviceTypeRevenue, error) {
	const q = `
select d.type, coalesce(sum(s.total_cost), 0)
from sessions s
join devices d on d.id = s.device_id
where s.center_id = $1
  and s.total_cost is not null
  and s.end_time >= current_date - ($2::int - 1)
group by d.type
order by d.type asc`
	rows, err := s.db.Query(ctx, q, centerID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.DeviceTypeRevenue, 0)
	for rows.Next() {
		var r model.DeviceTypeRevenue
		if err := rows.Scan(&r.Type, &r.Revenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RollupDailyRevenue rebuilds the revenue_days rows for the last few days
// across all centers. Runs periodically from the jobs worker; re-running is
// harmless because the upsert recomputes from source rows.
func (s *Store) RollupDailyRevenue(ctx context.Context) error {
	const q = `
insert into revenue_days (center_id, day, devices_revenue, buffet_revenue, updated_at)
select
  src.center_id,
  src.day,
  coalesce(sum(src.devices), 0),
  coalesce(sum(src.buffet), 0),
  now()
from (
  select center_id, end_time::date as day, total_cost as devices, 0 as buffet
  from sessions
  where total_cost is not null and end_time >= current_date - 7
  union all
  select center_id, created_at::date as day, 0 as devices, total_price as buffet
  from sales
  where created_at >= current_date - 7
) src
group by src.center_id, src.day
on conflict (center_id, day)
do update set
  devices_revenue = excluded.devices_revenue,
  buffet_revenue = excluded.buffet_revenue,
  updated_at = now()`
	_, err := s.db.Exec(ctx, q)
	return err
}

// CleanupReadNotifications drops read notifications older than the cutoff.
func (s *Store) CleanupReadNotifications(ctx context.Context, before time.Time) error {
	_, err := s.db.Exec(ctx, `delete from notifications where is_read and created_at < $1`, before)
	return err
}

// NotifyLowStock inserts a low-stock notification for every active product at
// or under the threshold that does not already have an unread one.
func (s *Store) NotifyLowStock(ctx context.Context, threshold int) error {
	const q = `
insert into notifications (id, center_id, kind, message, is_read, created_at)
select 'ntf_' || gen_random_uuid(), p.center_id, 'low_stock',
       p.name || ' stock is low (' || p.stock || ' left)', false, now()
from products p
where p.is_active and p.stock <= $1
  and not exists (
    select 1 from notifications n
    where n.center_id = p.center_id and n.kind = 'low_stock'
      and not n.is_read and n.message like p.name || ' %'
  )`
	_, err := s.db.Exec(ctx, q, threshold)
	return err
}
