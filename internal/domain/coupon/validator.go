package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Validator checks whether a coupon may be applied to an order and computes
// the discount. It never mutates the store.
type Validator struct {
	store Store
	now   func() time.Time
}

// NewValidator creates a Validator backed by the given Store.
func NewValidator(store Store) *Validator {
	return &Validator{store: store, now: time.Now}
}

// Validate looks up the active coupon for req.Code and req.RestaurantID and
// applies the eligibility rules of Check. On success it returns the coupon and
// the discount amount.
func (v *Validator) Validate(ctx context.Context, req Request) (*Result, error) {
	now := req.Now
	if now.IsZero() {
		now = v.now()
	}

	c, err := v.store.FindActive(ctx, req.RestaurantID, req.Code)
	if err != nil {
		if errors.Is(err, ErrNotFoundOrInactive) {
			return nil, ErrNotFoundOrInactive
		}
		return nil, storeErr("find coupon", err)
	}
	// The store filters on all three predicates; a record that slipped through
	// is treated exactly like a miss.
	if c == nil || c.Code != req.Code || c.RestaurantID != req.RestaurantID {
		return nil, ErrNotFoundOrInactive
	}

	if err := Check(c, req.OrderValue, now); err != nil {
		return nil, err
	}

	amount, err := ComputeDiscount(c, req.OrderValue)
	if err != nil {
		return nil, err
	}

	return &Result{Coupon: c, DiscountAmount: amount}, nil
}
