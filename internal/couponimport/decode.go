package couponimport

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"
)

// Record is one line of an export: the admin fields of a coupon plus its
// active flag. Server-owned fields (id, usesCount, timestamps) are ignored.
type Record struct {
	Params coupon.CreateParams
	Active bool
	// Line is the 1-based line number in the source file.
	Line int
}

// decodeRecord parses a coupon object in the same shape the admin API
// returns it.
func decodeRecord(data []byte) (Record, error) {
	r := Record{Active: true}
	p := &r.Params
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			p.Code, err = d.Str()
		case "restaurantId":
			p.RestaurantID, err = d.Str()
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
		case "isActive":
			r.Active, err = d.Bool()
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	if err != nil {
		return Record{}, err
	}
	p.Code = strings.TrimSpace(p.Code)
	p.RestaurantID = strings.TrimSpace(p.RestaurantID)
	return r, nil
}

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

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid time %q", s)
	}
	return t, nil
}
