// Command coupon-import loads gzip-compressed JSON-lines coupon exports.
//
//	coupon-import --database-url postgres://... exports/r1.jsonl.gz exports/r2.jsonl.gz
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/couponimport"
	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"
	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		capacity    uint
		workers     int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&capacity, "capacity", 1_000_000, "expected number of coupon keys, existing plus imported")
	flag.IntVar(&workers, "workers", 0, "concurrent file decoders (0 = one per file)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if flag.NArg() == 0 {
		slog.Error("no input files")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	opts := couponimport.Options{Capacity: capacity, Workers: workers}
	if err := run(ctx, databaseURL, flag.Args(), opts); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL string, files []string, opts couponimport.Options) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	store := postgres.NewCouponStore(pool)
	svc, err := coupon.NewService(store, coupon.ServiceOptions{})
	if err != nil {
		return errors.Wrap(err, "create coupon service")
	}

	rep, err := couponimport.New(store, svc, opts).Run(ctx, files)
	slog.Info("coupon import finished",
		slog.Int("files", rep.Files),
		slog.Int("read", rep.Read),
		slog.Int("inserted", rep.Inserted),
		slog.Int("duplicates", rep.Duplicates),
		slog.Int("invalid", rep.Invalid),
		slog.Int("false_positives", rep.FalsePositives),
	)
	return err
}
