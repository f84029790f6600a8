package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports the Ping error of a database pool.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return errors.Wrap(p.Ping(ctx), "ping")
	}
}

// RedisCheck pings the cache.
func RedisCheck(c redis.UniversalClient) CheckFunc {
	return func(ctx context.Context) error {
		if err := c.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "redis ping")
		}
		return nil
	}
}

// KafkaCheck succeeds when at least one broker accepts a connection.
func KafkaCheck(brokers []string) CheckFunc {
	var d kafka.Dialer
	return func(ctx context.Context) error {
		var last error = errors.New("no brokers configured")
		for _, addr := range brokers {
			conn, err := d.DialContext(ctx, "tcp", addr)
			if err != nil {
				last = err
				continue
			}
			_ = conn.Close()
			return nil
		}
		return errors.Wrap(last, "kafka dial")
	}
}

// GoroutineCountCheck fails when more than threshold goroutines run, which
// usually means a leak.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when the most recent stop-the-world pause exceeded
// threshold. Older pauses are ignored so a single slow collection cannot
// keep liveness failing.
func GCMaxPauseCheck(threshold time.Duration) CheckFunc {
	return gcPauseCheck(threshold, debug.ReadGCStats)
}

func gcPauseCheck(threshold time.Duration, read func(*debug.GCStats)) CheckFunc {
	return func(context.Context) error {
		var stats debug.GCStats
		read(&stats)
		if len(stats.Pause) == 0 {
			return nil
		}
		// Pause is ordered most recent first.
		if last := stats.Pause[0]; last > threshold {
			return errors.Errorf("GC pause %s exceeds threshold %s", last, threshold)
		}
		return nil
	}
}
