package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"
	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/order"
)

// --- Mock implementations ---

type mockCouponService struct {
	result *coupon.Result
	coupon *coupon.Coupon
	list   []coupon.Coupon
	err    error

	lastReq     coupon.Request
	lastCreate  coupon.CreateParams
	lastUpdate  coupon.UpdateParams
	lastID      string
	lastOrderID string
}

func (m *mockCouponService) Validate(_ context.Context, req coupon.Request) (*coupon.Result, error) {
	m.lastReq = req
	return m.result, m.err
}

func (m *mockCouponService) Redeem(_ context.Context, req coupon.Request) (*coupon.Result, error) {
	m.lastReq = req
	return m.result, m.err
}

func (m *mockCouponService) RecordRedemption(_ context.Context, couponID, orderID string) (*coupon.Coupon, error) {
	m.lastID, m.lastOrderID = couponID, orderID
	return m.coupon, m.err
}

func (m *mockCouponService) Create(_ context.Context, p coupon.CreateParams) (*coupon.Coupon, error) {
	m.lastCreate = p
	return m.coupon, m.err
}

func (m *mockCouponService) Get(_ context.Context, id string) (*coupon.Coupon, error) {
	m.lastID = id
	return m.coupon, m.err
}

func (m *mockCouponService) ListByRestaurant(_ context.Context, restaurantID string) ([]coupon.Coupon, error) {
	m.lastID = restaurantID
	return m.list, m.err
}

func (m *mockCouponService) Update(_ context.Context, id string, p coupon.UpdateParams) (*coupon.Coupon, error) {
	m.lastID = id
	m.lastUpdate = p
	return m.coupon, m.err
}

func (m *mockCouponService) ToggleActive(_ context.Context, id string) (*coupon.Coupon, error) {
	m.lastID = id
	return m.coupon, m.err
}

func (m *mockCouponService) Delete(_ context.Context, id string) error {
	m.lastID = id
	return m.err
}

type mockOrderService struct {
	stats     order.Stats
	order     *order.Order
	err       error
	lastQuery order.Query
	lastID    string
	lastState order.Status
}

func (m *mockOrderService) Statistics(_ context.Context, q order.Query) (order.Stats, error) {
	m.lastQuery = q
	return m.stats, m.err
}

func (m *mockOrderService) UpdateStatus(_ context.Context, id string, status order.Status) (*order.Order, error) {
	m.lastID, m.lastState = id, status
	return m.order, m.err
}

// --- Helpers ---

func testCoupon() *coupon.Coupon {
	return &coupon.Coupon{
		ID:            "c1",
		Code:          "SAVE10",
		RestaurantID:  "R1",
		DiscountType:  coupon.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		MaxUses:       100,
		UsesCount:     5,
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
}

func do(t *testing.T, h *Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

// fields flattens the top level of a JSON object into raw values.
func fields(t *testing.T, data []byte) map[string]string {
	t.Helper()

	out := map[string]string{}
	require.NoError(t, jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		out[key] = raw.String()
		return nil
	}))
	return out
}

// --- Tests ---

func TestValidateCoupon(t *testing.T) {
	svc := &mockCouponService{result: &coupon.Result{Coupon: testCoupon(), DiscountAmount: decimal.NewFromInt(20)}}
	h := NewHandler(HandlerConfig{}, svc, &mockOrderService{})

	rec := do(t, h, http.MethodPost, "/api/coupons/validate",
		`{"code":"SAVE10","restaurantId":"R1","orderValue":200,"now":"2024-06-01T00:00:00Z"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	got := fields(t, rec.Body.Bytes())
	assert.Equal(t, "true", got["success"])
	data := fields(t, []byte(got["data"]))
	assert.Equal(t, "20.00", data["discountAmount"])
	assert.Equal(t, `"c1"`, fields(t, []byte(data["coupon"]))["id"])

	assert.Equal(t, "SAVE10", svc.lastReq.Code)
	assert.Equal(t, "R1", svc.lastReq.RestaurantID)
	assert.True(t, decimal.NewFromInt(200).Equal(svc.lastReq.OrderValue))
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), svc.lastReq.Now)
}

func TestValidateCoupon_OrderValueAsString(t *testing.T) {
	svc := &mockCouponService{result: &coupon.Result{Coupon: testCoupon(), DiscountAmount: decimal.Zero}}
	h := NewHandler(HandlerConfig{}, svc, &mockOrderService{})

	rec := do(t, h, http.MethodPost, "/api/coupons/validate", `{"code":"SAVE10","restaurantId":"R1","orderValue":"49.99"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decimal.RequireFromString("49.99").Equal(svc.lastReq.OrderValue))
	assert.True(t, svc.lastReq.Now.IsZero())
}

func TestValidateCoupon_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMin    string
	}{
		{
			name:       "not found",
			err:        coupon.ErrNotFoundOrInactive,
			wantStatus: http.StatusOK,
			wantKind:   `"not_found_or_inactive"`,
		},
		{
			name:       "usage limit",
			err:        coupon.ErrUsageLimitReached,
			wantStatus: http.StatusOK,
			wantKind:   `"usage_limit_reached"`,
		},
		{
			name:       "window",
			err:        coupon.ErrOutOfValidityWindow,
			wantStatus: http.StatusOK,
			wantKind:   `"out_of_validity_window"`,
		},
		{
			name:       "below minimum",
			err:        &coupon.BelowMinimumOrderError{MinOrderValue: decimal.RequireFromString("49.995")},
			wantStatus: http.StatusOK,
			wantKind:   `"below_minimum_order"`,
			wantMin:    "49.995",
		},
		{
			name:       "store unavailable",
			err:        &coupon.StoreError{Op: "find coupon", Err: errors.New("dial tcp: refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   `"store_unavailable"`,
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantKind:   `"unknown"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(HandlerConfig{}, &mockCouponService{err: tt.err}, &mockOrderService{})

			rec := do(t, h, http.MethodPost, "/api/coupons/validate", `{"code":"X","restaurantId":"R1","orderValue":10}`)

			require.Equal(t, tt.wantStatus, rec.Code)
			got := fields(t, rec.Body.Bytes())
			assert.Equal(t, "false", got["success"])
			assert.Equal(t, tt.wantKind, got["error"])
			assert.NotEmpty(t, got["message"])
			if tt.wantMin != "" {
				assert.Equal(t, tt.wantMin, fields(t, []byte(got["details"]))["minOrderValue"])
			} else {
				assert.NotContains(t, got, "details")
			}
		})
	}
}

func TestValidateCoupon_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"code":`},
		{name: "missing code", body: `{"restaurantId":"R1","orderValue":10}`},
		{name: "missing restaurant", body: `{"code":"X","orderValue":10}`},
		{name: "missing order value", body: `{"code":"X","restaurantId":"R1"}`},
		{name: "negative order value", body: `{"code":"X","restaurantId":"R1","orderValue":-1}`},
		{name: "bad time", body: `{"code":"X","restaurantId":"R1","orderValue":1,"now":"yesterday"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCouponService{}
			h := NewHandler(HandlerConfig{}, svc, &mockOrderService{})

			rec := do(t, h, http.MethodPost, "/api/coupons/validate", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "400", fields(t, rec.Body.Bytes())["code"])
			assert.Empty(t, svc.lastReq.Code)
		})
	}
}

func TestRedeemCoupon(t *testing.T) {
	c := testCoupon()
	c.UsesCount = 6
	svc := &mockCouponService{result: &coupon.Result{Coupon: c, DiscountAmount: decimal.NewFromInt(20)}}
	h := NewHandler(HandlerConfig{}, svc, &mockOrderService{})

	rec := do(t, h, http.MethodPost, "/api/coupons/redeem",
		`{"code":"SAVE10","restaurantId":"R1","orderValue":200,"orderId":"o1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "o1", svc.lastReq.OrderID)
	data := fields(t, []byte(fields(t, rec.Body.Bytes())["data"]))
	assert.Equal(t, "6", fields(t, []byte(data["coupon"]))["usesCount"])
}

func TestGetCoupon_StoredValuesAreNotRounded(t *testing.T) {
	c := testCoupon()
	c.DiscountValue = decimal.RequireFromString("12.5")
	c.MinOrderValue = decimal.NewNullDecimal(decimal.RequireFromString("49.995"))
	h := NewHandler(HandlerConfig{}, &mockCouponService{coupon: c}, &mockOrderService{})

	rec := do(t, h, http.MethodGet, "/api/coupons/c1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	got := fields(t, rec.Body.Bytes())
	assert.Equal(t, "12.5", got["discountValue"])
	assert.Equal(t, "49.995", got["minOrderValue"])
	assert.Equal(t, "null", got["maxDiscountAmount"])
}

func TestRecordRedemption(t *testing.T) {
	svc := &mockCouponService{coupon: testCoupon()}
	h := NewHandler(HandlerConfig{}, svc, &mockOrderService{})

	rec := do(t, h, http.MethodPost, "/api/coupons/c1/redemptions", `{"orderId":"o7"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", svc.lastID)
	assert.Equal(t, "o7", svc.lastOrderID)

	svc.err = coupon.ErrUsageLimitReached
	rec = do(t, h, http.MethodPost, "/api/coupons/c1/redemptions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"usage_limit_reached"`, fields(t, rec.Body.Bytes())["error"])
}

func TestCreateCoupon(t *testing.T) {
	svc := &mockCouponService{coupon: testCoupon()}
	h := NewHandler(HandlerConfig{}, svc, &mockOrderService{})

	rec := do(t, h, http.MethodPost, "/api/restaurants/R1/coupons", `{
		"code": "SAVE10",
		"discountType": "percentage",
		"discountValue": 10,
		"maxDiscountAmount": "15.5",
		"minOrderValue": null,
		"maxUses": 100,
		"startDate": "2024-01-01",
		"endDate": "2024-12-31T00:00:00Z",
		"description": "ten off"
	}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	p := svc.lastCreate
	assert.Equal(t, "R1", p.RestaurantID)
	assert.Equal(t, "SAVE10", p.Code)
	assert.Equal(t, coupon.DiscountPercentage, p.DiscountType)
	assert.True(t, decimal.NewFromInt(10).Equal(p.DiscountValue))
	assert.True(t, p.MaxDiscountAmount.Valid)
	assert.False(t, p.MinOrderValue.Valid)
	assert.Equal(t, 100, p.MaxUses)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), p.StartDate)
	assert.Equal(t, "ten off", p.Description)
}

func TestAdminErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid", err: &coupon.InvalidInputError{Field: "code", Reason: "must not be empty"}, wantStatus: http.StatusBadRequest},
		{name: "missing", err: coupon.ErrCouponNotFound, wantStatus: http.StatusNotFound},
		{name: "duplicate", err: coupon.ErrDuplicateCode, wantStatus: http.StatusConflict},
		{name: "store", err: &coupon.StoreError{Op: "get coupon", Err: errors.New("down")}, wantStatus: http.StatusServiceUnavailable},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(HandlerConfig{}, &mockCouponService{err: tt.err}, &mockOrderService{})

			rec := do(t, h, http.MethodGet, "/api/coupons/c1", "")

			require.Equal(t, tt.wantStatus, rec.Code)
			got := fields(t, rec.Body.Bytes())
			assert.NotEmpty(t, got["message"])
		})
	}
}

func TestUpdateCoupon(t *testing.T) {
	svc := &mockCouponService{coupon: testCoupon()}
	h := NewHandler(HandlerConfig{}, svc, &mockOrderService{})

	rec := do(t, h, http.MethodPatch, "/api/coupons/c1", `{"discountValue":15,"maxDiscountAmount":null,"endDate":"2025-01-31"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", svc.lastID)
	p := svc.lastUpdate
	require.NotNil(t, p.DiscountValue)
	assert.True(t, decimal.NewFromInt(15).Equal(*p.DiscountValue))
	require.NotNil(t, p.MaxDiscountAmount)
	assert.False(t, p.MaxDiscountAmount.Valid)
	require.NotNil(t, p.EndDate)
	assert.Nil(t, p.Code)
	assert.Nil(t, p.MinOrderValue)
}

func TestToggleAndDeleteCoupon(t *testing.T) {
	c := testCoupon()
	c.IsActive = false
	svc := &mockCouponService{coupon: c}
	h := NewHandler(HandlerConfig{}, svc, &mockOrderService{})

	rec := do(t, h, http.MethodPost, "/api/coupons/c1/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "false", fields(t, rec.Body.Bytes())["isActive"])

	rec = do(t, h, http.MethodDelete, "/api/coupons/c1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "c1", svc.lastID)
}

func TestListCoupons(t *testing.T) {
	svc := &mockCouponService{list: []coupon.Coupon{*testCoupon(), *testCoupon()}}
	h := NewHandler(HandlerConfig{}, svc, &mockOrderService{})

	rec := do(t, h, http.MethodGet, "/api/restaurants/R1/coupons", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "R1", svc.lastID)
	var n int
	require.NoError(t, jx.DecodeBytes(rec.Body.Bytes()).Arr(func(d *jx.Decoder) error {
		n++
		return d.Skip()
	}))
	assert.Equal(t, 2, n)
}

func TestCouponQR(t *testing.T) {
	svc := &mockCouponService{coupon: testCoupon()}
	h := NewHandler(HandlerConfig{QRSize: 128}, svc, &mockOrderService{})

	rec := do(t, h, http.MethodGet, "/api/coupons/c1/qr.png", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestOrderStats(t *testing.T) {
	st := order.Aggregate([]order.Order{
		{Status: order.StatusPending, IsScheduled: true},
		{Status: order.StatusDelivered},
	}, "", time.Now())
	svc := &mockOrderService{stats: st}
	h := NewHandler(HandlerConfig{}, &mockCouponService{}, svc)

	rec := do(t, h, http.MethodGet, "/api/orders/stats?restaurantId=R1&status=pending", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, order.Query{RestaurantID: "R1", Status: order.StatusPending}, svc.lastQuery)
	got := fields(t, rec.Body.Bytes())
	assert.Equal(t, "1", got["pending"])
	assert.Equal(t, "1", got["delivered"])
	assert.Equal(t, "0", got["refunded"])
	assert.Equal(t, "1", got["scheduled"])
	assert.Equal(t, "2", got["total"])
}

func TestOrderStats_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid status", err: &order.InvalidStatusError{Status: "x"}, wantStatus: http.StatusBadRequest},
		{name: "store", err: &order.StoreError{Op: "list orders", Err: errors.New("down")}, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(HandlerConfig{}, &mockCouponService{}, &mockOrderService{err: tt.err})
			rec := do(t, h, http.MethodGet, "/api/orders/stats", "")
			require.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	svc := &mockOrderService{order: &order.Order{ID: "o1", Status: order.StatusConfirmed, OrderAmount: decimal.NewFromInt(42)}}
	h := NewHandler(HandlerConfig{}, &mockCouponService{}, svc)

	rec := do(t, h, http.MethodPatch, "/api/orders/o1/status", `{"status":"confirmed"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "o1", svc.lastID)
	assert.Equal(t, order.StatusConfirmed, svc.lastState)
	got := fields(t, rec.Body.Bytes())
	assert.Equal(t, `"confirmed"`, got["status"])
	assert.Equal(t, "42.00", got["orderAmount"])
	assert.Equal(t, "null", got["couponId"])

	rec = do(t, h, http.MethodPatch, "/api/orders/o1/status", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	svc.err = order.ErrNotFound
	rec = do(t, h, http.MethodPatch, "/api/orders/o1/status", `{"status":"confirmed"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
