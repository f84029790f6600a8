package coupon

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrorKind names a category of coupon failure as exposed to callers.
type ErrorKind string

const (
	KindNotFoundOrInactive  ErrorKind = "not_found_or_inactive"
	KindUsageLimitReached   ErrorKind = "usage_limit_reached"
	KindOutOfValidityWindow ErrorKind = "out_of_validity_window"
	KindBelowMinimumOrder   ErrorKind = "below_minimum_order"
	KindStoreUnavailable    ErrorKind = "store_unavailable"
	KindInvalidInput        ErrorKind = "invalid_input"
	KindDuplicateCode       ErrorKind = "duplicate_code"
	KindCouponNotFound      ErrorKind = "coupon_not_found"
	KindUnknown             ErrorKind = "unknown"
)

var (
	// ErrNotFoundOrInactive is returned when no active coupon matches the
	// code and restaurant. Unknown codes, codes of other restaurants and
	// deactivated coupons are deliberately indistinguishable.
	ErrNotFoundOrInactive = errors.New("coupon not found or inactive")
	// ErrUsageLimitReached is returned when a coupon has exhausted its uses.
	ErrUsageLimitReached = errors.New("coupon has reached its usage limit")
	// ErrOutOfValidityWindow is returned outside [StartDate, EndDate].
	ErrOutOfValidityWindow = errors.New("coupon is not valid at this time")
	// ErrBelowMinimumOrder matches every *BelowMinimumOrderError.
	ErrBelowMinimumOrder = errors.New("order value is below the coupon minimum")
	// ErrStoreUnavailable matches every *StoreError.
	ErrStoreUnavailable = errors.New("coupon store unavailable")
	// ErrCouponNotFound is returned by admin operations addressing a coupon id
	// that does not exist.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrDuplicateCode is returned when a restaurant already owns the code.
	ErrDuplicateCode = errors.New("coupon code already exists for this restaurant")
)

// BelowMinimumOrderError carries the minimum so callers can present it.
type BelowMinimumOrderError struct {
	MinOrderValue decimal.Decimal
}

func (e *BelowMinimumOrderError) Error() string {
	return fmt.Sprintf("order value is below the coupon minimum of %s", e.MinOrderValue.StringFixed(2))
}

// Is makes errors.Is(err, ErrBelowMinimumOrder) hold.
func (e *BelowMinimumOrderError) Is(target error) bool {
	return target == ErrBelowMinimumOrder
}

// StoreError wraps a collaborator I/O failure. The underlying message is
// preserved verbatim.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("coupon store unavailable: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStoreUnavailable) hold.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// InvalidInputError reports a rejected admin mutation.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// KindOf classifies err. Nil yields the empty kind.
func KindOf(err error) ErrorKind {
	var invalid *InvalidInputError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFoundOrInactive):
		return KindNotFoundOrInactive
	case errors.Is(err, ErrUsageLimitReached):
		return KindUsageLimitReached
	case errors.Is(err, ErrOutOfValidityWindow):
		return KindOutOfValidityWindow
	case errors.Is(err, ErrBelowMinimumOrder):
		return KindBelowMinimumOrder
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.As(err, &invalid):
		return KindInvalidInput
	case errors.Is(err, ErrDuplicateCode):
		return KindDuplicateCode
	case errors.Is(err, ErrCouponNotFound):
		return KindCouponNotFound
	default:
		return KindUnknown
	}
}

// storeErr wraps err as a StoreError unless it already is a domain outcome.
func storeErr(op string, err error) error {
	if isDomainError(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func isDomainError(err error) bool {
	var invalid *InvalidInputError
	return errors.Is(err, ErrNotFoundOrInactive) ||
		errors.Is(err, ErrUsageLimitReached) ||
		errors.Is(err, ErrCouponNotFound) ||
		errors.Is(err, ErrDuplicateCode) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.As(err, &invalid)
}
