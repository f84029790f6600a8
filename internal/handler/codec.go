package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"
	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/order"
)

// maxBodySize bounds request bodies; every payload here is a small object.
const maxBodySize = 64 << 10

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError renders the plain {"code","message"} error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

// readBody returns a decoder over the request body. An empty body decodes as
// an empty object.
func readBody(r *http.Request) (*jx.Decoder, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(data) > maxBodySize {
		return nil, errors.New("request body too large")
	}
	if len(data) == 0 {
		data = []byte("{}")
	}
	return jx.DecodeBytes(data), nil
}

// encodeDecimal writes a stored rule parameter exactly as it is held.
func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.RawStr(v.String())
}

// encodeAmount writes a money amount with two decimal places.
func encodeAmount(e *jx.Encoder, v decimal.Decimal) {
	e.RawStr(v.StringFixed(2))
}

func encodeNullDecimal(e *jx.Encoder, v decimal.NullDecimal) {
	if !v.Valid {
		e.Null()
		return
	}
	encodeDecimal(e, v.Decimal)
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	default:
		return decimal.Decimal{}, errors.New("expected number")
	}
}

func decodeNullDecimal(d *jx.Decoder) (decimal.NullDecimal, error) {
	if d.Next() == jx.Null {
		return decimal.NullDecimal{}, d.Null()
	}
	v, err := decodeDecimal(d)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(v), nil
}

// decodeTime accepts RFC 3339 timestamps and plain dates, read as UTC midnight.
func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return parseTime(s)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid time %q", s)
	}
	return t, nil
}

func encodeCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(c.ID) })
		e.Field("code", func(e *jx.Encoder) { e.Str(c.Code) })
		e.Field("restaurantId", func(e *jx.Encoder) { e.Str(c.RestaurantID) })
		e.Field("discountType", func(e *jx.Encoder) { e.Str(string(c.DiscountType)) })
		e.Field("discountValue", func(e *jx.Encoder) { encodeDecimal(e, c.DiscountValue) })
		e.Field("minOrderValue", func(e *jx.Encoder) { encodeNullDecimal(e, c.MinOrderValue) })
		e.Field("maxDiscountAmount", func(e *jx.Encoder) { encodeNullDecimal(e, c.MaxDiscountAmount) })
		e.Field("maxUses", func(e *jx.Encoder) { e.Int(c.MaxUses) })
		e.Field("usesCount", func(e *jx.Encoder) { e.Int(c.UsesCount) })
		e.Field("startDate", func(e *jx.Encoder) { encodeTime(e, c.StartDate) })
		e.Field("endDate", func(e *jx.Encoder) { encodeTime(e, c.EndDate) })
		e.Field("isActive", func(e *jx.Encoder) { e.Bool(c.IsActive) })
		e.Field("description", func(e *jx.Encoder) { e.Str(c.Description) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, c.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, c.UpdatedAt) })
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("restaurantId", func(e *jx.Encoder) { e.Str(o.RestaurantID) })
		e.Field("customerId", func(e *jx.Encoder) { e.Str(o.CustomerID) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("isScheduled", func(e *jx.Encoder) { e.Bool(o.IsScheduled) })
		e.Field("scheduledAt", func(e *jx.Encoder) {
			if o.ScheduledAt == nil {
				e.Null()
				return
			}
			encodeTime(e, *o.ScheduledAt)
		})
		e.Field("orderAmount", func(e *jx.Encoder) { encodeAmount(e, o.OrderAmount) })
		e.Field("couponId", func(e *jx.Encoder) {
			if o.CouponID == "" {
				e.Null()
				return
			}
			e.Str(o.CouponID)
		})
		e.Field("couponDiscount", func(e *jx.Encoder) { encodeAmount(e, o.CouponDiscount) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
	})
}

func encodeStats(e *jx.Encoder, st order.Stats) {
	e.Obj(func(e *jx.Encoder) {
		for _, s := range order.KnownStatuses {
			e.Field(string(s), func(e *jx.Encoder) { e.Int(st.ByStatus[s]) })
		}
		e.Field("scheduled", func(e *jx.Encoder) { e.Int(st.Scheduled) })
		e.Field("total", func(e *jx.Encoder) { e.Int(st.Total) })
		e.Field("today", func(e *jx.Encoder) { e.Int(st.Today) })
		e.Field("thisWeek", func(e *jx.Encoder) { e.Int(st.ThisWeek) })
	})
}
