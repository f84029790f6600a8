package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"

// CreateParams holds the admin input for a new coupon.
type CreateParams struct {
	Code              string
	RestaurantID      string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MinOrderValue     decimal.NullDecimal
	MaxDiscountAmount decimal.NullDecimal
	MaxUses           int
	StartDate         time.Time
	EndDate           time.Time
	Description       string
}

// UpdateParams is a partial update. Nil fields are left untouched; a
// NullDecimal with Valid=false clears the optional amount.
type UpdateParams struct {
	Code              *string
	DiscountType      *DiscountType
	DiscountValue     *decimal.Decimal
	MinOrderValue     *decimal.NullDecimal
	MaxDiscountAmount *decimal.NullDecimal
	MaxUses           *int
	StartDate         *time.Time
	EndDate           *time.Time
	Description       *string
}

// ServiceOptions configures optional collaborators of a Service.
type ServiceOptions struct {
	Publisher      Publisher
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// Service exposes coupon validation, redemption and admin operations.
type Service struct {
	store     Store
	validator *Validator
	publisher Publisher

	now   func() time.Time
	newID func() string

	tracer      trace.Tracer
	validations metric.Int64Counter
	redemptions metric.Int64Counter
}

// NewService creates a coupon Service on top of store.
func NewService(store Store, opts ServiceOptions) (*Service, error) {
	if opts.MeterProvider == nil {
		opts.MeterProvider = metricnoop.NewMeterProvider()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = tracenoop.NewTracerProvider()
	}
	meter := opts.MeterProvider.Meter(instrumentationName)

	validations, err := meter.Int64Counter("coupon.validations",
		metric.WithDescription("Coupon validations by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create validations counter")
	}
	redemptions, err := meter.Int64Counter("coupon.redemptions",
		metric.WithDescription("Recorded coupon redemptions by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create redemptions counter")
	}

	return &Service{
		store:       store,
		validator:   NewValidator(store),
		publisher:   opts.Publisher,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
		tracer:      opts.TracerProvider.Tracer(instrumentationName),
		validations: validations,
		redemptions: redemptions,
	}, nil
}

// Validate checks the coupon without consuming a use.
func (s *Service) Validate(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "coupon.Validate", trace.WithAttributes(
		attribute.String("coupon.restaurant_id", req.RestaurantID),
	))
	defer span.End()

	if req.Now.IsZero() {
		req.Now = s.now()
	}
	res, err := s.validator.Validate(ctx, req)
	s.validations.Add(ctx, 1, metric.WithAttributes(outcome(err)))
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return res, nil
}

// Redeem validates the coupon and, when it applies, records one redemption.
// The usage counter is re-checked atomically by the store, so a concurrent
// redemption that took the last use yields ErrUsageLimitReached.
func (s *Service) Redeem(ctx context.Context, req Request) (*Result, error) {
	res, err := s.Validate(ctx, req)
	if err != nil {
		return nil, err
	}
	c, err := s.RecordRedemption(ctx, res.Coupon.ID, req.OrderID)
	if err != nil {
		return nil, err
	}
	res.Coupon = c
	return res, nil
}

// RecordRedemption increments the coupon's usage counter. Callers invoke it
// once the associated order is confirmed.
func (s *Service) RecordRedemption(ctx context.Context, couponID, orderID string) (*Coupon, error) {
	ctx, span := s.tracer.Start(ctx, "coupon.RecordRedemption", trace.WithAttributes(
		attribute.String("coupon.id", couponID),
	))
	defer span.End()

	c, err := s.store.IncrementUses(ctx, couponID)
	if errors.Is(err, ErrCouponNotFound) {
		err = ErrNotFoundOrInactive
	}
	if err != nil {
		err = storeErr("increment uses", err)
		s.redemptions.Add(ctx, 1, metric.WithAttributes(outcome(err)))
		recordSpanError(span, err)
		return nil, err
	}
	s.redemptions.Add(ctx, 1, metric.WithAttributes(outcome(nil)))

	if s.publisher != nil {
		ev := RedemptionEvent{
			CouponID:     c.ID,
			RestaurantID: c.RestaurantID,
			Code:         c.Code,
			OrderID:      orderID,
			UsesCount:    c.UsesCount,
			RedeemedAt:   s.now().UTC(),
		}
		if err := s.publisher.PublishRedemption(ctx, ev); err != nil {
			zctx.From(ctx).Warn("Publish redemption event",
				zap.String("coupon_id", c.ID),
				zap.Error(err),
			)
		}
	}
	return c, nil
}

// Create validates and stores a new active coupon.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Coupon, error) {
	now := s.now().UTC()
	c := &Coupon{
		ID:                s.newID(),
		Code:              strings.TrimSpace(p.Code),
		RestaurantID:      strings.TrimSpace(p.RestaurantID),
		DiscountType:      p.DiscountType,
		DiscountValue:     p.DiscountValue,
		MinOrderValue:     p.MinOrderValue,
		MaxDiscountAmount: p.MaxDiscountAmount,
		MaxUses:           p.MaxUses,
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		IsActive:          true,
		Description:       p.Description,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := validateCoupon(c); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, storeErr("create coupon", err)
	}
	return c, nil
}

// Get returns a coupon by id regardless of its active flag.
func (s *Service) Get(ctx context.Context, id string) (*Coupon, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeErr("get coupon", err)
	}
	return c, nil
}

// ListByRestaurant returns every coupon owned by the restaurant.
func (s *Service) ListByRestaurant(ctx context.Context, restaurantID string) ([]Coupon, error) {
	list, err := s.store.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, storeErr("list coupons", err)
	}
	return list, nil
}

// Update applies p to the stored coupon and overwrites it in place.
func (s *Service) Update(ctx context.Context, id string, p UpdateParams) (*Coupon, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeErr("get coupon", err)
	}

	if p.Code != nil {
		c.Code = strings.TrimSpace(*p.Code)
	}
	if p.DiscountType != nil {
		c.DiscountType = *p.DiscountType
	}
	if p.DiscountValue != nil {
		c.DiscountValue = *p.DiscountValue
	}
	if p.MinOrderValue != nil {
		c.MinOrderValue = *p.MinOrderValue
	}
	if p.MaxDiscountAmount != nil {
		c.MaxDiscountAmount = *p.MaxDiscountAmount
	}
	if p.MaxUses != nil {
		c.MaxUses = *p.MaxUses
	}
	if p.StartDate != nil {
		c.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		c.EndDate = *p.EndDate
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	c.UpdatedAt = s.now().UTC()

	if err := validateCoupon(c); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, c); err != nil {
		return nil, storeErr("update coupon", err)
	}
	return c, nil
}

// SetActive sets the administrative active flag.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (*Coupon, error) {
	c, err := s.store.SetActive(ctx, id, active)
	if err != nil {
		return nil, storeErr("set coupon active", err)
	}
	return c, nil
}

// ToggleActive flips the administrative active flag.
func (s *Service) ToggleActive(ctx context.Context, id string) (*Coupon, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeErr("get coupon", err)
	}
	return s.SetActive(ctx, id, !c.IsActive)
}

// Delete removes the coupon permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Delete(ctx, id); err != nil {
		return storeErr("delete coupon", err)
	}
	return nil
}

func validateCoupon(c *Coupon) error {
	switch {
	case c.Code == "":
		return &InvalidInputError{Field: "code", Reason: "must not be empty"}
	case c.RestaurantID == "":
		return &InvalidInputError{Field: "restaurantId", Reason: "must not be empty"}
	case !c.DiscountType.Valid():
		return &InvalidInputError{Field: "discountType", Reason: "must be percentage or fixed"}
	case !c.DiscountValue.IsPositive():
		return &InvalidInputError{Field: "discountValue", Reason: "must be positive"}
	case c.DiscountType == DiscountPercentage && c.DiscountValue.GreaterThan(hundred):
		return &InvalidInputError{Field: "discountValue", Reason: "percentage must not exceed 100"}
	case c.MinOrderValue.Valid && c.MinOrderValue.Decimal.IsNegative():
		return &InvalidInputError{Field: "minOrderValue", Reason: "must not be negative"}
	case c.MaxDiscountAmount.Valid && c.MaxDiscountAmount.Decimal.IsNegative():
		return &InvalidInputError{Field: "maxDiscountAmount", Reason: "must not be negative"}
	case c.MaxUses < 0:
		return &InvalidInputError{Field: "maxUses", Reason: "must not be negative"}
	case c.StartDate.IsZero() || c.EndDate.IsZero():
		return &InvalidInputError{Field: "startDate", Reason: "validity window is required"}
	case c.StartDate.After(c.EndDate):
		return &InvalidInputError{Field: "endDate", Reason: "must not be before startDate"}
	}
	return nil
}

func outcome(err error) attribute.KeyValue {
	if err == nil {
		return attribute.String("outcome", "ok")
	}
	return attribute.String("outcome", string(KindOf(err)))
}

func recordSpanError(span trace.Span, err error) {
	// Expected validation outcomes are not span errors.
	if errors.Is(err, ErrStoreUnavailable) || KindOf(err) == KindUnknown {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.String("coupon.outcome", string(KindOf(err))))
}
