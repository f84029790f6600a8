// Command seed-db runs migrations and loads demo coupons and orders.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"
	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/order"
	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		restaurantID string
		orders       int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&restaurantID, "restaurant", "R1", "restaurant that owns the seeded data")
	flag.IntVar(&orders, "orders", 40, "number of demo orders")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, restaurantID, orders); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, restaurantID string, orders int) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCoupons(ctx, postgres.NewCouponStore(pool), demoCoupons(restaurantID)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedOrders(ctx, postgres.NewOrderStore(pool), demoOrders(restaurantID, orders, time.Now().UTC())); err != nil {
		return errors.Wrap(err, "seed orders")
	}

	return nil
}

func demoCoupons(restaurantID string) []coupon.Coupon {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	return []coupon.Coupon{
		{
			ID:            "seed-save10",
			Code:          "SAVE10",
			RestaurantID:  restaurantID,
			DiscountType:  coupon.DiscountPercentage,
			DiscountValue: decimal.NewFromInt(10),
			MaxUses:       100,
			UsesCount:     5,
			StartDate:     start,
			EndDate:       end,
			IsActive:      true,
			Description:   "10% off any order",
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:                "seed-half",
			Code:              "HALFOFF",
			RestaurantID:      restaurantID,
			DiscountType:      coupon.DiscountPercentage,
			DiscountValue:     decimal.NewFromInt(50),
			MaxDiscountAmount: decimal.NewNullDecimal(decimal.NewFromInt(20)),
			MinOrderValue:     decimal.NewNullDecimal(decimal.NewFromInt(30)),
			StartDate:         start,
			EndDate:           end,
			IsActive:          true,
			Description:       "50% off orders over 30, up to 20",
			CreatedAt:         now,
			UpdatedAt:         now,
		},
		{
			ID:            "seed-five",
			Code:          "FIVEOFF",
			RestaurantID:  restaurantID,
			DiscountType:  coupon.DiscountFixed,
			DiscountValue: decimal.NewFromInt(5),
			MaxUses:       10,
			StartDate:     start,
			EndDate:       end,
			IsActive:      false,
			Description:   "5 off, paused",
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}

func seedCoupons(ctx context.Context, store coupon.Store, coupons []coupon.Coupon) error {
	slog.Info("seeding coupons", slog.Int("count", len(coupons)))

	for i := range coupons {
		c := &coupons[i]
		err := store.Create(ctx, c)
		switch {
		case errors.Is(err, coupon.ErrDuplicateCode):
			slog.Info("coupon exists, skipping", slog.String("code", c.Code))
		case err != nil:
			return errors.Wrapf(err, "create coupon %s", c.Code)
		default:
			slog.Info("created coupon", slog.String("code", c.Code), slog.String("description", c.Description))
		}
	}

	return nil
}

// demoOrders spreads n orders over every status and the last two weeks so
// every statistics bucket is populated.
func demoOrders(restaurantID string, n int, now time.Time) []order.Order {
	out := make([]order.Order, 0, n)
	for i := range n {
		status := order.KnownStatuses[i%len(order.KnownStatuses)]
		created := now.Add(-time.Duration(i) * 8 * time.Hour)
		o := order.Order{
			ID:           fmt.Sprintf("seed-order-%03d", i),
			RestaurantID: restaurantID,
			CustomerID:   fmt.Sprintf("customer-%d", i%7),
			Status:       status,
			OrderAmount:  decimal.NewFromInt(int64(15 + i%5*10)),
			CreatedAt:    created,
		}
		if i%6 == 0 {
			at := created.Add(2 * time.Hour)
			o.IsScheduled = true
			o.ScheduledAt = &at
		}
		if i%4 == 0 {
			o.CouponID = "seed-save10"
			o.CouponDiscount = o.OrderAmount.Mul(decimal.NewFromInt(10)).Div(decimal.NewFromInt(100)).Round(2)
		}
		out = append(out, o)
	}
	return out
}

func seedOrders(ctx context.Context, store order.Repository, orders []order.Order) error {
	slog.Info("seeding orders", slog.Int("count", len(orders)))

	for i := range orders {
		if err := store.Create(ctx, &orders[i]); err != nil {
			return errors.Wrapf(err, "create order %s", orders[i].ID)
		}
	}

	return nil
}
