// Package couponimport loads gzip-compressed JSON-lines coupon exports.
//
// Files are decompressed and decoded concurrently. Inserts are sequential so
// the bloom filter of known (restaurant, code) keys stays consistent: a
// negative answer means the key is new and is inserted directly, a positive
// one is confirmed against the store before the record is skipped.
package couponimport

import (
	"bufio"
	"context"
	"log/slog"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"
)

const (
	defaultCapacity = 1_000_000
	defaultFPR      = 0.001
	maxLineSize     = 1 << 20
)

// KeyIndex enumerates and checks existing coupon keys.
type KeyIndex interface {
	EachKey(ctx context.Context, fn func(restaurantID, code string)) error
	CodeExists(ctx context.Context, restaurantID, code string) (bool, error)
}

// Creator creates coupons with the same validation as the admin API.
type Creator interface {
	Create(ctx context.Context, p coupon.CreateParams) (*coupon.Coupon, error)
	SetActive(ctx context.Context, id string, active bool) (*coupon.Coupon, error)
}

// Options tune an Importer.
type Options struct {
	// Capacity is the expected number of keys, existing plus imported.
	Capacity uint
	// FalsePositiveRate of the key filter.
	FalsePositiveRate float64
	// Workers bounds concurrent file decoding. Zero means one per file.
	Workers int
	Logger  *slog.Logger
}

// Report summarises an import run.
type Report struct {
	Files      int
	Read       int
	Inserted   int
	Duplicates int
	Invalid    int
	// FalsePositives counts filter hits the store did not confirm.
	FalsePositives int
}

// Importer loads coupon exports into the store.
type Importer struct {
	index   KeyIndex
	creator Creator
	opts    Options
	log     *slog.Logger
}

// New returns an Importer.
func New(index KeyIndex, creator Creator, opts Options) *Importer {
	if opts.Capacity == 0 {
		opts.Capacity = defaultCapacity
	}
	if opts.FalsePositiveRate <= 0 || opts.FalsePositiveRate >= 1 {
		opts.FalsePositiveRate = defaultFPR
	}
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Importer{index: index, creator: creator, opts: opts, log: lg}
}

// Run imports every file in order.
func (im *Importer) Run(ctx context.Context, files []string) (Report, error) {
	rep := Report{Files: len(files)}

	batches, err := im.decodeAll(ctx, files)
	if err != nil {
		return rep, errors.Wrap(err, "decode files")
	}

	filter := bloom.NewWithEstimates(im.opts.Capacity, im.opts.FalsePositiveRate)
	var known int
	if err := im.index.EachKey(ctx, func(restaurantID, code string) {
		filter.AddString(key(restaurantID, code))
		known++
	}); err != nil {
		return rep, errors.Wrap(err, "load existing keys")
	}
	im.log.Info("loaded existing coupon keys", slog.Int("count", known))

	for i, batch := range batches {
		rep.Read += len(batch.records) + batch.invalid
		rep.Invalid += batch.invalid
		for _, r := range batch.records {
			if err := im.insert(ctx, filter, r, &rep); err != nil {
				return rep, errors.Wrapf(err, "%s line %d", files[i], r.Line)
			}
		}
		im.log.Info("file imported",
			slog.String("path", files[i]),
			slog.Int("records", len(batch.records)),
			slog.Int("invalid", batch.invalid),
		)
	}
	return rep, nil
}

func (im *Importer) insert(ctx context.Context, filter *bloom.BloomFilter, r Record, rep *Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := key(r.Params.RestaurantID, r.Params.Code)
	if filter.TestString(k) {
		exists, err := im.index.CodeExists(ctx, r.Params.RestaurantID, r.Params.Code)
		if err != nil {
			return err
		}
		if exists {
			rep.Duplicates++
			return nil
		}
		rep.FalsePositives++
	}

	c, err := im.creator.Create(ctx, r.Params)
	switch {
	case errors.Is(err, coupon.ErrDuplicateCode):
		rep.Duplicates++
		return nil
	case coupon.KindOf(err) == coupon.KindInvalidInput:
		rep.Invalid++
		im.log.Warn("invalid coupon skipped",
			slog.Int("line", r.Line),
			slog.String("code", r.Params.Code),
			slog.String("error", err.Error()),
		)
		return nil
	case err != nil:
		return err
	}
	filter.AddString(k)
	rep.Inserted++

	if !r.Active {
		if _, err := im.creator.SetActive(ctx, c.ID, false); err != nil {
			return errors.Wrap(err, "deactivate")
		}
	}
	return nil
}

type batch struct {
	records []Record
	invalid int
}

func (im *Importer) decodeAll(ctx context.Context, files []string) ([]batch, error) {
	out := make([]batch, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if im.opts.Workers > 0 {
		g.SetLimit(im.opts.Workers)
	}
	for i, path := range files {
		g.Go(func() error {
			b, err := im.decodeFile(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "file %s", path)
			}
			out[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (im *Importer) decodeFile(ctx context.Context, path string) (batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return batch{}, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return batch{}, errors.Wrap(err, "gzip reader")
	}
	defer func() { _ = gz.Close() }()

	var b batch
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return batch{}, err
		}
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		r, err := decodeRecord(data)
		if err != nil {
			b.invalid++
			im.log.Warn("malformed line skipped",
				slog.String("path", path),
				slog.Int("line", line),
				slog.String("error", err.Error()),
			)
			continue
		}
		r.Line = line
		b.records = append(b.records, r)
	}
	if err := scanner.Err(); err != nil {
		return batch{}, errors.Wrap(err, "scan")
	}
	return b, nil
}

func key(restaurantID, code string) string {
	return restaurantID + "\x00" + code
}
