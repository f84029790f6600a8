package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"
)

// Sentinel errors for order operations.
var (
	ErrNotFound         = errors.New("order not found")
	ErrStoreUnavailable = errors.New("order store unavailable")
)

// InvalidStatusError indicates a status outside KnownStatuses.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("unknown order status %q", e.Status)
}

// StoreError wraps a repository failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("order store unavailable: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStoreUnavailable) hold.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// Redeemer records a coupon redemption once an order is confirmed.
type Redeemer interface {
	RecordRedemption(ctx context.Context, couponID, orderID string) (*coupon.Coupon, error)
}

// Query selects the orders summarised by Statistics.
type Query struct {
	RestaurantID string
	Status       Status
}

// Service encapsulates order statistics and status transitions.
type Service struct {
	orders   Repository
	redeemer Redeemer
	now      func() time.Time
}

// NewService creates an order Service. redeemer may be nil, in which case
// confirmations do not touch coupons.
func NewService(orders Repository, redeemer Redeemer) *Service {
	return &Service{
		orders:   orders,
		redeemer: redeemer,
		now:      time.Now,
	}
}

// Statistics loads the matching orders and tallies them.
func (s *Service) Statistics(ctx context.Context, q Query) (Stats, error) {
	if q.Status != "" && !q.Status.Known() {
		return Stats{}, &InvalidStatusError{Status: string(q.Status)}
	}
	orders, err := s.orders.List(ctx, Filter(q))
	if err != nil {
		return Stats{}, &StoreError{Op: "list orders", Err: err}
	}
	return Aggregate(orders, q.Status, s.now()), nil
}

// UpdateStatus moves the order to status. The first confirmation of an order
// that carries a coupon records the redemption; later confirmations do not,
// even after the order left the confirmed status. A failed redemption is
// logged and does not undo the status change.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (*Order, error) {
	if !status.Known() {
		return nil, &InvalidStatusError{Status: string(status)}
	}

	change, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "update status", Err: err}
	}

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "get order", Err: err}
	}

	zctx.From(ctx).Debug("Order status changed",
		zap.String("order_id", o.ID),
		zap.String("from", string(change.Prev)),
		zap.String("to", string(o.Status)),
	)

	if !change.RedeemCoupon || o.CouponID == "" || s.redeemer == nil {
		return o, nil
	}
	if _, err := s.redeemer.RecordRedemption(ctx, o.CouponID, o.ID); err != nil {
		zctx.From(ctx).Warn("Record coupon redemption",
			zap.String("order_id", o.ID),
			zap.String("coupon_id", o.CouponID),
			zap.Error(err),
		)
	}
	return o, nil
}
