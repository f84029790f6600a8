package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"
)

const couponColumns = `id, code, restaurant_id, discount_type, discount_value,
	min_order_value, max_discount_amount, max_uses, uses_count,
	start_date, end_date, is_active, description, created_at, updated_at`

const (
	findActiveCouponSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE restaurant_id = $1 AND code = $2 AND is_active = TRUE`

	getCouponSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	listCouponsSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE restaurant_id = $1 ORDER BY created_at DESC, code`

	// The usage check and the increment happen in one statement so
	// concurrent redemptions cannot overshoot max_uses.
	incrementCouponUsesSQL = `UPDATE coupons
		SET uses_count = uses_count + 1, updated_at = NOW()
		WHERE id = $1 AND (max_uses = 0 OR uses_count < max_uses)
		RETURNING ` + couponColumns

	couponExistsSQL = `SELECT EXISTS (SELECT 1 FROM coupons WHERE id = $1)`

	insertCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	updateCouponSQL = `UPDATE coupons SET
		code = $2, discount_type = $3, discount_value = $4,
		min_order_value = $5, max_discount_amount = $6, max_uses = $7,
		start_date = $8, end_date = $9, description = $10, updated_at = $11
		WHERE id = $1`

	setCouponActiveSQL = `UPDATE coupons SET is_active = $2, updated_at = NOW()
		WHERE id = $1 RETURNING ` + couponColumns

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1 RETURNING ` + couponColumns

	couponKeysSQL = `SELECT restaurant_id, code FROM coupons`

	couponCodeExistsSQL = `SELECT EXISTS (SELECT 1 FROM coupons WHERE restaurant_id = $1 AND code = $2)`
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var _ coupon.Store = (*CouponStore)(nil)

// CouponStore implements coupon.Store backed by PostgreSQL.
type CouponStore struct {
	pool *pgxpool.Pool
}

// NewCouponStore returns a CouponStore that uses the given pool.
func NewCouponStore(pool *pgxpool.Pool) *CouponStore {
	return &CouponStore{pool: pool}
}

// FindActive looks up an active coupon by exact code within a restaurant.
// Returns coupon.ErrNotFoundOrInactive when nothing matches.
func (s *CouponStore) FindActive(ctx context.Context, restaurantID, code string) (*coupon.Coupon, error) {
	c, err := s.queryOne(ctx, findActiveCouponSQL, restaurantID, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFoundOrInactive
		}
		return nil, fmt.Errorf("finding coupon %q for restaurant %q: %w", code, restaurantID, err)
	}
	return c, nil
}

// IncrementUses consumes one use. When the conditional update matches no
// row, a second query tells a missing coupon from an exhausted one.
func (s *CouponStore) IncrementUses(ctx context.Context, id string) (*coupon.Coupon, error) {
	c, err := s.queryOne(ctx, incrementCouponUsesSQL, id)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("incrementing uses for coupon %q: %w", id, err)
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, couponExistsSQL, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking coupon %q: %w", id, err)
	}
	if !exists {
		return nil, coupon.ErrCouponNotFound
	}
	return nil, coupon.ErrUsageLimitReached
}

// Get returns a coupon by id.
func (s *CouponStore) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	c, err := s.queryOne(ctx, getCouponSQL, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}
	return c, nil
}

// ListByRestaurant returns all coupons of a restaurant, newest first.
func (s *CouponStore) ListByRestaurant(ctx context.Context, restaurantID string) ([]coupon.Coupon, error) {
	rows, err := s.pool.Query(ctx, listCouponsSQL, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}

	list, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("scanning coupons: %w", err)
	}
	return list, nil
}

// Create inserts a new coupon. A clashing (restaurant, code) pair yields
// coupon.ErrDuplicateCode.
func (s *CouponStore) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := s.pool.Exec(ctx, insertCouponSQL,
		c.ID, c.Code, c.RestaurantID, string(c.DiscountType), c.DiscountValue,
		c.MinOrderValue, c.MaxDiscountAmount, c.MaxUses, c.UsesCount,
		c.StartDate, c.EndDate, c.IsActive, c.Description, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Update overwrites the mutable fields of a coupon. Usage counter and active
// flag have dedicated operations and are left alone.
func (s *CouponStore) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := s.pool.Exec(ctx, updateCouponSQL,
		c.ID, c.Code, string(c.DiscountType), c.DiscountValue,
		c.MinOrderValue, c.MaxDiscountAmount, c.MaxUses,
		c.StartDate, c.EndDate, c.Description, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("updating coupon %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrCouponNotFound
	}
	return nil
}

// SetActive sets the active flag and returns the updated coupon.
func (s *CouponStore) SetActive(ctx context.Context, id string, active bool) (*coupon.Coupon, error) {
	c, err := s.queryOne(ctx, setCouponActiveSQL, id, active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, fmt.Errorf("setting coupon %q active: %w", id, err)
	}
	return c, nil
}

// Delete removes a coupon and returns the deleted row.
func (s *CouponStore) Delete(ctx context.Context, id string) (*coupon.Coupon, error) {
	c, err := s.queryOne(ctx, deleteCouponSQL, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, fmt.Errorf("deleting coupon %q: %w", id, err)
	}
	return c, nil
}

// EachKey streams the (restaurant, code) pair of every stored coupon.
func (s *CouponStore) EachKey(ctx context.Context, fn func(restaurantID, code string)) error {
	rows, err := s.pool.Query(ctx, couponKeysSQL)
	if err != nil {
		return fmt.Errorf("listing coupon keys: %w", err)
	}
	var restaurantID, code string
	_, err = pgx.ForEachRow(rows, []any{&restaurantID, &code}, func() error {
		fn(restaurantID, code)
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning coupon keys: %w", err)
	}
	return nil
}

// CodeExists reports whether the restaurant already has a coupon with code,
// active or not.
func (s *CouponStore) CodeExists(ctx context.Context, restaurantID, code string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, couponCodeExistsSQL, restaurantID, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking coupon code %q: %w", code, err)
	}
	return exists, nil
}

func (s *CouponStore) queryOne(ctx context.Context, sql string, args ...any) (*coupon.Coupon, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.RestaurantID, &discountType, &c.DiscountValue,
		&c.MinOrderValue, &c.MaxDiscountAmount, &c.MaxUses, &c.UsesCount,
		&c.StartDate, &c.EndDate, &c.IsActive, &c.Description, &c.CreatedAt, &c.UpdatedAt,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	return c, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
