package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/order"
)

// OrderStats handles GET /api/orders/stats?restaurantId=&status=.
func (h *Handler) OrderStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	st, err := h.orders.Statistics(r.Context(), order.Query{
		RestaurantID: q.Get("restaurantId"),
		Status:       order.Status(q.Get("status")),
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeStats(e, st) })
}

// UpdateOrderStatus handles PATCH /api/orders/{orderID}/status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var status string
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		v, err := d.Str()
		status = v
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), order.Status(status))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *order.InvalidStatusError
	switch {
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrStoreUnavailable):
		zctx.From(r.Context()).Error("Order store unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "order store unavailable")
	default:
		zctx.From(r.Context()).Error("Order operation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
