// Package rediscache provides a read-through Redis cache for coupon lookups.
package rediscache

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"
)

// DefaultTTL bounds how long a cached coupon may lag behind the store.
const DefaultTTL = 30 * time.Second

// generationTTL keeps eviction generations alive far longer than any
// store read that could race with them.
const generationTTL = 24 * time.Hour

// setIfGeneration writes the entry only when no eviction ran since the
// caller sampled the generation. KEYS: entry, generation. ARGV: sampled
// generation, payload, ttl in milliseconds.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

var _ coupon.Store = (*CouponStore)(nil)

// CouponStore caches FindActive results in Redis and evicts them on every
// mutation routed through it. Redis failures degrade to the backing store.
type CouponStore struct {
	next   coupon.Store
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCouponStore wraps next with a Redis cache. A non-positive ttl selects
// DefaultTTL.
func NewCouponStore(next coupon.Store, client redis.UniversalClient, ttl time.Duration) *CouponStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CouponStore{next: next, client: client, ttl: ttl}
}

// Key returns the cache key of an active coupon lookup. The restaurant ID is
// length-prefixed so no (restaurant, code) pair can alias another.
func Key(restaurantID, code string) string {
	return "coupon:" + strconv.Itoa(len(restaurantID)) + ":" + restaurantID + ":" + code
}

func generationKey(key string) string {
	return key + ":gen"
}

// FindActive implements coupon.Store. A miss is filled only if no eviction of
// the key happened while the backing store was read.
func (s *CouponStore) FindActive(ctx context.Context, restaurantID, code string) (*coupon.Coupon, error) {
	key := Key(restaurantID, code)
	genKey := generationKey(key)
	lg := zctx.From(ctx)

	cacheable := true
	gen := "0"
	vals, err := s.client.MGet(ctx, key, genKey).Result()
	switch {
	case err != nil:
		cacheable = false
		lg.Warn("Read coupon cache", zap.String("key", key), zap.Error(err))
	default:
		if v, ok := vals[1].(string); ok {
			gen = v
		}
		if v, ok := vals[0].(string); ok {
			c, decErr := decodeCoupon([]byte(v))
			if decErr == nil {
				return c, nil
			}
			lg.Warn("Decode cached coupon", zap.String("key", key), zap.Error(decErr))
		}
	}

	c, err := s.next.FindActive(ctx, restaurantID, code)
	if err != nil {
		return nil, err
	}
	if !cacheable {
		return c, nil
	}
	err = setIfGeneration.Run(ctx, s.client, []string{key, genKey},
		gen, encodeCoupon(c), s.ttl.Milliseconds(),
	).Err()
	if err != nil {
		lg.Warn("Write coupon cache", zap.String("key", key), zap.Error(err))
	}
	return c, nil
}

// IncrementUses implements coupon.Store.
func (s *CouponStore) IncrementUses(ctx context.Context, id string) (*coupon.Coupon, error) {
	c, err := s.next.IncrementUses(ctx, id)
	if err != nil {
		if errors.Is(err, coupon.ErrUsageLimitReached) {
			// The cached counter is behind; drop it so validation sees the limit.
			s.evictByID(ctx, id)
		}
		return nil, err
	}
	s.evict(ctx, c)
	return c, nil
}

// Get implements coupon.Store.
func (s *CouponStore) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	return s.next.Get(ctx, id)
}

// ListByRestaurant implements coupon.Store.
func (s *CouponStore) ListByRestaurant(ctx context.Context, restaurantID string) ([]coupon.Coupon, error) {
	return s.next.ListByRestaurant(ctx, restaurantID)
}

// Create implements coupon.Store.
func (s *CouponStore) Create(ctx context.Context, c *coupon.Coupon) error {
	return s.next.Create(ctx, c)
}

// Update implements coupon.Store. Both the old and the new code are evicted.
func (s *CouponStore) Update(ctx context.Context, c *coupon.Coupon) error {
	old, err := s.next.Get(ctx, c.ID)
	if err != nil {
		return err
	}
	if err := s.next.Update(ctx, c); err != nil {
		return err
	}
	s.evict(ctx, old, c)
	return nil
}

// SetActive implements coupon.Store.
func (s *CouponStore) SetActive(ctx context.Context, id string, active bool) (*coupon.Coupon, error) {
	c, err := s.next.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	s.evict(ctx, c)
	return c, nil
}

// Delete implements coupon.Store.
func (s *CouponStore) Delete(ctx context.Context, id string) (*coupon.Coupon, error) {
	c, err := s.next.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.evict(ctx, c)
	return c, nil
}

func (s *CouponStore) evictByID(ctx context.Context, id string) {
	c, err := s.next.Get(ctx, id)
	if err != nil {
		zctx.From(ctx).Warn("Load coupon for eviction", zap.String("coupon_id", id), zap.Error(err))
		return
	}
	s.evict(ctx, c)
}

// evict drops the entries and bumps their generations in one transaction,
// which voids any fill that sampled the old generation.
func (s *CouponStore) evict(ctx context.Context, coupons ...*coupon.Coupon) {
	keys := make([]string, 0, len(coupons))
	for _, c := range coupons {
		keys = append(keys, Key(c.RestaurantID, c.Code))
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		for _, key := range keys {
			pipe.Incr(ctx, generationKey(key))
			pipe.Expire(ctx, generationKey(key), generationTTL)
		}
		return nil
	})
	if err != nil {
		zctx.From(ctx).Warn("Evict coupon cache", zap.Strings("keys", keys), zap.Error(err))
	}
}
