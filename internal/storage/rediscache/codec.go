package rediscache

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"
)

func encodeCoupon(c *coupon.Coupon) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("code")
	e.Str(c.Code)
	e.FieldStart("restaurantId")
	e.Str(c.RestaurantID)
	e.FieldStart("discountType")
	e.Str(string(c.DiscountType))
	e.FieldStart("discountValue")
	e.Str(c.DiscountValue.String())
	e.FieldStart("minOrderValue")
	encodeNullDecimal(e, c.MinOrderValue)
	e.FieldStart("maxDiscountAmount")
	encodeNullDecimal(e, c.MaxDiscountAmount)
	e.FieldStart("maxUses")
	e.Int(c.MaxUses)
	e.FieldStart("usesCount")
	e.Int(c.UsesCount)
	e.FieldStart("startDate")
	e.Str(c.StartDate.Format(time.RFC3339Nano))
	e.FieldStart("endDate")
	e.Str(c.EndDate.Format(time.RFC3339Nano))
	e.FieldStart("isActive")
	e.Bool(c.IsActive)
	e.FieldStart("description")
	e.Str(c.Description)
	e.FieldStart("createdAt")
	e.Str(c.CreatedAt.Format(time.RFC3339Nano))
	e.FieldStart("updatedAt")
	e.Str(c.UpdatedAt.Format(time.RFC3339Nano))
	e.ObjEnd()

	// The encoder buffer is reused after PutEncoder.
	return append([]byte(nil), e.Bytes()...)
}

func encodeNullDecimal(e *jx.Encoder, v decimal.NullDecimal) {
	if !v.Valid {
		e.Null()
		return
	}
	e.Str(v.Decimal.String())
}

func decodeCoupon(data []byte) (*coupon.Coupon, error) {
	var c coupon.Coupon
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			c.ID, err = d.Str()
		case "code":
			c.Code, err = d.Str()
		case "restaurantId":
			c.RestaurantID, err = d.Str()
		case "discountType":
			var s string
			s, err = d.Str()
			c.DiscountType = coupon.DiscountType(s)
		case "discountValue":
			c.DiscountValue, err = decodeDecimal(d)
		case "minOrderValue":
			c.MinOrderValue, err = decodeNullDecimal(d)
		case "maxDiscountAmount":
			c.MaxDiscountAmount, err = decodeNullDecimal(d)
		case "maxUses":
			c.MaxUses, err = d.Int()
		case "usesCount":
			c.UsesCount, err = d.Int()
		case "startDate":
			c.StartDate, err = decodeTime(d)
		case "endDate":
			c.EndDate, err = decodeTime(d)
		case "isActive":
			c.IsActive, err = d.Bool()
		case "description":
			c.Description, err = d.Str()
		case "createdAt":
			c.CreatedAt, err = decodeTime(d)
		case "updatedAt":
			c.UpdatedAt, err = decodeTime(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	s, err := d.Str()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(s)
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
	return time.Parse(time.RFC3339Nano, s)
}
