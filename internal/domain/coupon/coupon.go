package coupon

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the order value, optionally
	// capped by MaxDiscountAmount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed monetary amount, capped at the order value.
	DiscountFixed DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Coupon is a discount code scoped to one restaurant.
type Coupon struct {
	ID           string
	Code         string
	RestaurantID string
	DiscountType DiscountType
	// DiscountValue is a percent (0-100) for percentage coupons and a currency
	// amount for fixed coupons.
	DiscountValue decimal.Decimal
	// MinOrderValue is the smallest order value the coupon applies to.
	MinOrderValue decimal.NullDecimal
	// MaxDiscountAmount caps percentage discounts. Ignored for fixed coupons.
	MaxDiscountAmount decimal.NullDecimal
	// MaxUses limits redemptions; zero means unlimited.
	MaxUses   int
	UsesCount int
	// StartDate and EndDate bound the inclusive validity window.
	StartDate   time.Time
	EndDate     time.Time
	IsActive    bool
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UsageExhausted reports whether the coupon has reached its usage limit.
func (c *Coupon) UsageExhausted() bool {
	return c.MaxUses > 0 && c.UsesCount >= c.MaxUses
}

// InWindow reports whether t lies within [StartDate, EndDate].
func (c *Coupon) InWindow(t time.Time) bool {
	return !t.Before(c.StartDate) && !t.After(c.EndDate)
}

// Request describes a coupon application attempt.
type Request struct {
	Code         string
	RestaurantID string
	OrderValue   decimal.Decimal
	// Now is the evaluation instant. The zero value means wall-clock time.
	Now time.Time
	// OrderID optionally links a redemption to the confirmed order.
	OrderID string
}

// Result is the outcome of a successful validation.
type Result struct {
	Coupon         *Coupon
	DiscountAmount decimal.Decimal
}

// Store is the document-store collaborator backing coupons.
type Store interface {
	// FindActive returns the active coupon matching both code and restaurant.
	// It returns ErrNotFoundOrInactive when nothing matches.
	FindActive(ctx context.Context, restaurantID, code string) (*Coupon, error)
	// IncrementUses adds one to the usage counter unless the coupon is at its
	// limit, in which case it returns ErrUsageLimitReached without writing.
	IncrementUses(ctx context.Context, id string) (*Coupon, error)

	Get(ctx context.Context, id string) (*Coupon, error)
	ListByRestaurant(ctx context.Context, restaurantID string) ([]Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	SetActive(ctx context.Context, id string, active bool) (*Coupon, error)
	Delete(ctx context.Context, id string) (*Coupon, error)
}

// RedemptionEvent is emitted after a redemption has been recorded.
type RedemptionEvent struct {
	CouponID     string
	RestaurantID string
	Code         string
	OrderID      string
	UsesCount    int
	RedeemedAt   time.Time
}

// Publisher receives redemption events.
type Publisher interface {
	PublishRedemption(ctx context.Context, ev RedemptionEvent) error
}
