package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle bucket of an order.
type Status string

const (
	StatusPending         Status = "pending"
	StatusConfirmed       Status = "confirmed"
	StatusProcessing      Status = "processing"
	StatusHandover        Status = "handover"
	StatusPickedUp        Status = "picked_up"
	StatusDelivered       Status = "delivered"
	StatusCanceled        Status = "canceled"
	StatusRefundRequested Status = "refund_requested"
	StatusRefunded        Status = "refunded"
	StatusFailed          Status = "failed"
)

// KnownStatuses lists every bucket reported by Aggregate, in display order.
var KnownStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusHandover,
	StatusPickedUp,
	StatusDelivered,
	StatusCanceled,
	StatusRefundRequested,
	StatusRefunded,
	StatusFailed,
}

// Known reports whether s is one of KnownStatuses.
func (s Status) Known() bool {
	for _, k := range KnownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// Order is a customer order as seen by the restaurant panel.
type Order struct {
	ID           string
	RestaurantID string
	CustomerID   string
	Status       Status
	IsScheduled  bool
	ScheduledAt  *time.Time
	OrderAmount  decimal.Decimal
	// CouponID is empty when no coupon was applied.
	CouponID       string
	CouponDiscount decimal.Decimal
	// CouponRedeemed is set by the first confirmation that claimed the
	// coupon use and never cleared.
	CouponRedeemed bool
	CreatedAt      time.Time
}

// Filter narrows a List call. Empty fields match everything.
type Filter struct {
	RestaurantID string
	Status       Status
}

// StatusChange is the outcome of Repository.UpdateStatus.
type StatusChange struct {
	Prev Status
	// RedeemCoupon is true for exactly one call per order: the first move
	// into confirmed of an order carrying a coupon.
	RedeemCoupon bool
}

// Repository defines persistence operations for orders.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	Create(ctx context.Context, o *Order) error
	// UpdateStatus sets the status and, in the same write, claims the coupon
	// redemption when the order is confirmed for the first time.
	UpdateStatus(ctx context.Context, id string, status Status) (StatusChange, error)
}
