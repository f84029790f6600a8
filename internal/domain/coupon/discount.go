package coupon

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Check runs the eligibility rules against an already fetched coupon in
// order: active flag, usage limit, validity window, minimum order. It stops
// at the first failure.
func Check(c *Coupon, orderValue decimal.Decimal, now time.Time) error {
	if c == nil || !c.IsActive {
		return ErrNotFoundOrInactive
	}
	if c.UsageExhausted() {
		return ErrUsageLimitReached
	}
	if !c.InWindow(now) {
		return ErrOutOfValidityWindow
	}
	if c.MinOrderValue.Valid && orderValue.LessThan(c.MinOrderValue.Decimal) {
		return &BelowMinimumOrderError{MinOrderValue: c.MinOrderValue.Decimal}
	}
	return nil
}

// ComputeDiscount returns the discount the coupon grants on orderValue.
//
// The amount is clamped to [0, orderValue] (and to MaxDiscountAmount for
// percentage coupons) and rounded half away from zero to cents. Rounding
// never lifts the amount above a cap.
func ComputeDiscount(c *Coupon, orderValue decimal.Decimal) (decimal.Decimal, error) {
	orderValue = floorAtZero(orderValue)
	limit := orderValue

	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		amount = orderValue.Mul(c.DiscountValue).Div(hundred)
		if c.MaxDiscountAmount.Valid {
			limit = decimal.Min(limit, floorAtZero(c.MaxDiscountAmount.Decimal))
		}
	case DiscountFixed:
		amount = c.DiscountValue
	default:
		return zero, errors.Errorf("unsupported discount type: %q", c.DiscountType)
	}

	amount = decimal.Min(floorAtZero(amount), limit)
	rounded := amount.Round(2)
	if rounded.GreaterThan(limit) {
		rounded = limit.Truncate(2)
	}
	return rounded, nil
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
