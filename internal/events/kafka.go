// Package events publishes coupon domain events.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"
)

// DefaultTopic receives coupon redemption events.
const DefaultTopic = "coupon.redeemed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ coupon.Publisher = (*KafkaPublisher)(nil)

// KafkaPublisher writes redemption events to a Kafka topic, keyed by coupon
// id so events of one coupon stay ordered within a partition.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

// PublishRedemption implements coupon.Publisher.
func (p *KafkaPublisher) PublishRedemption(ctx context.Context, ev coupon.RedemptionEvent) error {
	msg := kafka.Message{
		Key:   []byte(ev.CouponID),
		Value: EncodeRedemption(ev),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(DefaultTopic)},
		},
		Time: ev.RedeemedAt,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "write redemption event")
	}
	return nil
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// EncodeRedemption renders ev as JSON.
func EncodeRedemption(ev coupon.RedemptionEvent) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("couponId", func(e *jx.Encoder) { e.Str(ev.CouponID) })
		e.Field("restaurantId", func(e *jx.Encoder) { e.Str(ev.RestaurantID) })
		e.Field("code", func(e *jx.Encoder) { e.Str(ev.Code) })
		if ev.OrderID != "" {
			e.Field("orderId", func(e *jx.Encoder) { e.Str(ev.OrderID) })
		}
		e.Field("usesCount", func(e *jx.Encoder) { e.Int(ev.UsesCount) })
		e.Field("redeemedAt", func(e *jx.Encoder) { e.Str(ev.RedeemedAt.UTC().Format(time.RFC3339Nano)) })
	})
	return e.Bytes()
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

// PublishRedemption implements coupon.Publisher.
func (Nop) PublishRedemption(context.Context, coupon.RedemptionEvent) error { return nil }
