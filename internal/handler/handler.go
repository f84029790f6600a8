// Package handler implements the HTTP API of the restaurant panel backend.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"
	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/order"
)

// CouponService is the coupon behaviour the handler depends on.
type CouponService interface {
	Validate(ctx context.Context, req coupon.Request) (*coupon.Result, error)
	Redeem(ctx context.Context, req coupon.Request) (*coupon.Result, error)
	RecordRedemption(ctx context.Context, couponID, orderID string) (*coupon.Coupon, error)
	Create(ctx context.Context, p coupon.CreateParams) (*coupon.Coupon, error)
	Get(ctx context.Context, id string) (*coupon.Coupon, error)
	ListByRestaurant(ctx context.Context, restaurantID string) ([]coupon.Coupon, error)
	Update(ctx context.Context, id string, p coupon.UpdateParams) (*coupon.Coupon, error)
	ToggleActive(ctx context.Context, id string) (*coupon.Coupon, error)
	Delete(ctx context.Context, id string) error
}

// OrderService is the order behaviour the handler depends on.
type OrderService interface {
	Statistics(ctx context.Context, q order.Query) (order.Stats, error)
	UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error)
}

var (
	_ CouponService = (*coupon.Service)(nil)
	_ OrderService  = (*order.Service)(nil)
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// QRSize is the edge length in pixels of generated coupon QR codes.
	QRSize int
}

// Handler serves the coupon and order endpoints.
type Handler struct {
	coupons CouponService
	orders  OrderService
	qrSize  int
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, coupons CouponService, orders OrderService) *Handler {
	if cfg.QRSize <= 0 {
		cfg.QRSize = 256
	}
	return &Handler{
		coupons: coupons,
		orders:  orders,
		qrSize:  cfg.QRSize,
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/coupons", func(r chi.Router) {
			r.Post("/validate", h.ValidateCoupon)
			r.Post("/redeem", h.RedeemCoupon)
			r.Route("/{couponID}", func(r chi.Router) {
				r.Get("/", h.GetCoupon)
				r.Patch("/", h.UpdateCoupon)
				r.Delete("/", h.DeleteCoupon)
				r.Post("/toggle", h.ToggleCoupon)
				r.Post("/redemptions", h.RecordRedemption)
				r.Get("/qr.png", h.CouponQR)
			})
		})
		r.Route("/restaurants/{restaurantID}/coupons", func(r chi.Router) {
			r.Get("/", h.ListCoupons)
			r.Post("/", h.CreateCoupon)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/stats", h.OrderStats)
			r.Patch("/{orderID}/status", h.UpdateOrderStatus)
		})
	})
}

// Router returns a chi router serving only the API routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}
