package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/order"
)

const orderColumns = `id, restaurant_id, customer_id, status, is_scheduled, scheduled_at,
	order_amount, coupon_id, coupon_discount, coupon_redeemed, created_at`

const (
	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	// Re-sent orders keep their first version.
	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`

	// The subquery locks and reads the row before the update. coupon_redeemed
	// only ever flips to true, so exactly one confirmation claims the coupon.
	updateOrderStatusSQL = `UPDATE orders o SET status = $2::text,
			coupon_redeemed = o.coupon_redeemed
				OR ($2::text = 'confirmed' AND o.coupon_id IS NOT NULL)
		FROM (SELECT id, status, coupon_redeemed FROM orders WHERE id = $1 FOR UPDATE) prev
		WHERE o.id = prev.id
		RETURNING prev.status, o.coupon_redeemed AND NOT prev.coupon_redeemed`
)

var _ order.Repository = (*OrderStore)(nil)

// OrderStore implements order.Repository backed by PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// List returns the orders matching f.
func (s *OrderStore) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	var (
		where []string
		args  []any
	)
	if f.RestaurantID != "" {
		args = append(args, f.RestaurantID)
		where = append(where, fmt.Sprintf("restaurant_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	sql := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("scanning orders: %w", err)
	}
	return list, nil
}

// Get returns an order by id or order.ErrNotFound.
func (s *OrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := s.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// Create persists a new order.
func (s *OrderStore) Create(ctx context.Context, o *order.Order) error {
	var couponID *string
	if o.CouponID != "" {
		couponID = &o.CouponID
	}
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, createOrderSQL,
		o.ID, o.RestaurantID, o.CustomerID, string(o.Status), o.IsScheduled, o.ScheduledAt,
		o.OrderAmount, couponID, o.CouponDiscount, o.CouponRedeemed, createdAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// UpdateStatus sets the status and claims the coupon redemption on the first
// confirmation.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status order.Status) (order.StatusChange, error) {
	var (
		prev   string
		change order.StatusChange
	)
	err := s.pool.QueryRow(ctx, updateOrderStatusSQL, id, string(status)).Scan(&prev, &change.RedeemCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.StatusChange{}, order.ErrNotFound
		}
		return order.StatusChange{}, fmt.Errorf("updating order %q status: %w", id, err)
	}
	change.Prev = order.Status(prev)
	return change, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o        order.Order
		status   string
		couponID *string
	)
	err := row.Scan(
		&o.ID, &o.RestaurantID, &o.CustomerID, &status, &o.IsScheduled, &o.ScheduledAt,
		&o.OrderAmount, &couponID, &o.CouponDiscount, &o.CouponRedeemed, &o.CreatedAt,
	)
	o.Status = order.Status(status)
	if couponID != nil {
		o.CouponID = *couponID
	}
	return o, err
}
