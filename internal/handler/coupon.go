package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"
)

// ValidateCoupon handles POST /api/coupons/validate. The coupon is checked
// and priced without consuming a use.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCouponRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.coupons.Validate(r.Context(), req)
	h.writeOutcome(w, r, res, err)
}

// RedeemCoupon handles POST /api/coupons/redeem: validate, then record one
// use.
func (h *Handler) RedeemCoupon(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCouponRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.coupons.Redeem(r.Context(), req)
	h.writeOutcome(w, r, res, err)
}

// RecordRedemption handles POST /api/coupons/{couponID}/redemptions, used
// once the caller has confirmed the order separately.
func (h *Handler) RecordRedemption(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var orderID string
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "orderId" {
			return d.Skip()
		}
		v, err := d.Str()
		orderID = v
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	c, err := h.coupons.RecordRedemption(r.Context(), chi.URLParam(r, "couponID"), orderID)
	if err != nil {
		h.writeOutcomeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("data", func(e *jx.Encoder) { encodeCoupon(e, c) })
		})
	})
}

// ListCoupons handles GET /api/restaurants/{restaurantID}/coupons.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := h.coupons.ListByRestaurant(r.Context(), chi.URLParam(r, "restaurantID"))
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range list {
				encodeCoupon(e, &list[i])
			}
		})
	})
}

// CreateCoupon handles POST /api/restaurants/{restaurantID}/coupons.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	p, err := decodeCreateParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.RestaurantID = chi.URLParam(r, "restaurantID")

	c, err := h.coupons.Create(r.Context(), p)
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCoupon(e, c) })
}

// GetCoupon handles GET /api/coupons/{couponID}.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.Get(r.Context(), chi.URLParam(r, "couponID"))
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCoupon(e, c) })
}

// UpdateCoupon handles PATCH /api/coupons/{couponID}.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	p, err := decodeUpdateParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.coupons.Update(r.Context(), chi.URLParam(r, "couponID"), p)
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCoupon(e, c) })
}

// ToggleCoupon handles POST /api/coupons/{couponID}/toggle.
func (h *Handler) ToggleCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.ToggleActive(r.Context(), chi.URLParam(r, "couponID"))
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCoupon(e, c) })
}

// DeleteCoupon handles DELETE /api/coupons/{couponID}.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), chi.URLParam(r, "couponID")); err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CouponQR handles GET /api/coupons/{couponID}/qr.png. The QR code carries
// the coupon code so it can be scanned at checkout.
func (h *Handler) CouponQR(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.Get(r.Context(), chi.URLParam(r, "couponID"))
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	png, err := qrcode.Encode(c.Code, qrcode.Medium, h.qrSize)
	if err != nil {
		h.writeAdminError(w, r, errors.Wrap(err, "encode qr"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// writeOutcome renders the discriminated validation result.
func (h *Handler) writeOutcome(w http.ResponseWriter, r *http.Request, res *coupon.Result, err error) {
	if err != nil {
		h.writeOutcomeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("data", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("coupon", func(e *jx.Encoder) { encodeCoupon(e, res.Coupon) })
					e.Field("discountAmount", func(e *jx.Encoder) { encodeAmount(e, res.DiscountAmount) })
				})
			})
		})
	})
}

// writeOutcomeError renders a coupon failure as {"success":false,...}.
// Expected outcomes are 200; only infrastructure failures change the status.
func (h *Handler) writeOutcomeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := coupon.KindOf(err)
	status := http.StatusOK
	msg := err.Error()
	switch kind {
	case coupon.KindStoreUnavailable:
		status = http.StatusServiceUnavailable
		zctx.From(r.Context()).Error("Coupon store unavailable", zap.Error(err))
	case coupon.KindInvalidInput:
		status = http.StatusBadRequest
	case coupon.KindUnknown:
		status = http.StatusInternalServerError
		msg = "internal error"
		zctx.From(r.Context()).Error("Coupon operation failed", zap.Error(err))
	}

	var below *coupon.BelowMinimumOrderError
	hasMin := errors.As(err, &below)

	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
			e.Field("error", func(e *jx.Encoder) { e.Str(string(kind)) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
			if hasMin {
				e.Field("details", func(e *jx.Encoder) {
					e.Obj(func(e *jx.Encoder) {
						e.Field("minOrderValue", func(e *jx.Encoder) { encodeDecimal(e, below.MinOrderValue) })
					})
				})
			}
		})
	})
}

// writeAdminError maps admin operation errors to plain error responses.
func (h *Handler) writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *coupon.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, coupon.ErrCouponNotFound), errors.Is(err, coupon.ErrNotFoundOrInactive):
		writeError(w, http.StatusNotFound, coupon.ErrCouponNotFound.Error())
	case errors.Is(err, coupon.ErrDuplicateCode):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, coupon.ErrStoreUnavailable):
		zctx.From(r.Context()).Error("Coupon store unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "coupon store unavailable")
	default:
		zctx.From(r.Context()).Error("Coupon admin operation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeCouponRequest(r *http.Request) (coupon.Request, error) {
	var req coupon.Request
	d, err := readBody(r)
	if err != nil {
		return req, err
	}
	var hasOrderValue bool
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			req.Code, err = d.Str()
		case "restaurantId":
			req.RestaurantID, err = d.Str()
		case "orderValue":
			req.OrderValue, err = decodeDecimal(d)
			hasOrderValue = true
		case "now":
			req.Now, err = decodeTime(d)
		case "orderId":
			req.OrderID, err = d.Str()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %s", key)
		}
		return nil
	})
	switch {
	case err != nil:
		return req, errors.Wrap(err, "invalid body")
	case strings.TrimSpace(req.Code) == "":
		return req, errors.New("code is required")
	case req.RestaurantID == "":
		return req, errors.New("restaurantId is required")
	case !hasOrderValue:
		return req, errors.New("orderValue is required")
	case req.OrderValue.IsNegative():
		return req, errors.New("orderValue must not be negative")
	}
	return req, nil
}

func decodeCreateParams(r *http.Request) (coupon.CreateParams, error) {
	var p coupon.CreateParams
	d, err := readBody(r)
	if err != nil {
		return p, err
	}
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			p.Code, err = d.Str()
		case "discountType":
			var s string
			s, err = d.Str()
			p.DiscountType = coupon.DiscountType(s)
		case "discountValue":
			p.DiscountValue, err = decodeDecimal(d)
		case "minOrderValue":
			p.MinOrderValue, err = decodeNullDecimal(d)
		case "maxDiscountAmount":
			p.MaxDiscountAmount, err = decodeNullDecimal(d)
		case "maxUses":
			p.MaxUses, err = d.Int()
		case "startDate":
			p.StartDate, err = decodeTime(d)
		case "endDate":
			p.EndDate, err = decodeTime(d)
		case "description":
			p.Description, err = d.Str()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %s", key)
		}
		return nil
	})
	if err != nil {
		return p, errors.Wrap(err, "invalid body")
	}
	return p, nil
}

func decodeUpdateParams(r *http.Request) (coupon.UpdateParams, error) {
	var p coupon.UpdateParams
	d, err := readBody(r)
	if err != nil {
		return p, err
	}
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			var s string
			s, err = d.Str()
			p.Code = &s
		case "discountType":
			var s string
			s, err = d.Str()
			t := coupon.DiscountType(s)
			p.DiscountType = &t
		case "discountValue":
			var v decimal.Decimal
			v, err = decodeDecimal(d)
			p.DiscountValue = &v
		case "minOrderValue":
			var v decimal.NullDecimal
			v, err = decodeNullDecimal(d)
			p.MinOrderValue = &v
		case "maxDiscountAmount":
			var v decimal.NullDecimal
			v, err = decodeNullDecimal(d)
			p.MaxDiscountAmount = &v
		case "maxUses":
			var n int
			n, err = d.Int()
			p.MaxUses = &n
		case "startDate":
			var t time.Time
			t, err = decodeTime(d)
			p.StartDate = &t
		case "endDate":
			var t time.Time
			t, err = decodeTime(d)
			p.EndDate = &t
		case "description":
			var s string
			s, err = d.Str()
			p.Description = &s
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %s", key)
		}
		return nil
	})
	if err != nil {
		return p, errors.Wrap(err, "invalid body")
	}
	return p, nil
}
