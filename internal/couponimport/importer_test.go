package couponimport

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LamranI-AL/dixie-restaurant-pannel-sub001/internal/domain/coupon"
)

// memIndex is KeyIndex and Creator over a map, mimicking the store's unique
// (restaurant, code) constraint.
type memIndex struct {
	mu          sync.Mutex
	keys        map[string]bool
	active      map[string]bool
	existsCalls int
	createErr   error
}

func newMemIndex(existing ...[2]string) *memIndex {
	m := &memIndex{keys: map[string]bool{}, active: map[string]bool{}}
	for _, k := range existing {
		m.keys[key(k[0], k[1])] = true
	}
	return m
}

func (m *memIndex) EachKey(_ context.Context, fn func(restaurantID, code string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.keys {
		r, c, _ := strings.Cut(k, "\x00")
		fn(r, c)
	}
	return nil
}

func (m *memIndex) CodeExists(_ context.Context, restaurantID, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsCalls++
	return m.keys[key(restaurantID, code)], nil
}

func (m *memIndex) Create(_ context.Context, p coupon.CreateParams) (*coupon.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	if p.Code == "" {
		return nil, &coupon.InvalidInputError{Field: "code", Reason: "must not be empty"}
	}
	k := key(p.RestaurantID, p.Code)
	if m.keys[k] {
		return nil, coupon.ErrDuplicateCode
	}
	m.keys[k] = true
	m.active[k] = true
	return &coupon.Coupon{ID: k, Code: p.Code, RestaurantID: p.RestaurantID}, nil
}

func (m *memIndex) SetActive(_ context.Context, id string, active bool) (*coupon.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[id] = active
	return &coupon.Coupon{ID: id}, nil
}

func writeGz(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "export.jsonl.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func line(restaurant, code string, extra ...string) string {
	fields := []string{
		`"code":"` + code + `"`,
		`"restaurantId":"` + restaurant + `"`,
		`"discountType":"percentage"`,
		`"discountValue":10`,
		`"startDate":"2024-01-01"`,
		`"endDate":"2024-12-31T00:00:00Z"`,
	}
	return "{" + strings.Join(append(fields, extra...), ",") + "}"
}

func newTestImporter(idx *memIndex) *Importer {
	return New(idx, idx, Options{
		Capacity: 1000,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestImporter_Run(t *testing.T) {
	idx := newMemIndex([2]string{"R1", "SAVE10"})
	first := writeGz(t,
		line("R1", "SAVE10"),
		line("R1", "NEW1"),
		line("R2", "SAVE10"),
		`{"code": broken`,
		"",
		line("R1", "PAUSED", `"isActive":false`),
	)
	second := writeGz(t,
		line("R1", "NEW1"),
		line("R1", ""),
		line("R3", "NEW3", `"minOrderValue":"25.50"`, `"maxDiscountAmount":null`, `"id":"ignored"`),
	)

	rep, err := newTestImporter(idx).Run(context.Background(), []string{first, second})
	require.NoError(t, err)

	assert.Equal(t, Report{
		Files:      2,
		Read:       8,
		Inserted:   4,
		Duplicates: 2,
		Invalid:    2,
	}, rep)
	assert.True(t, idx.keys[key("R2", "SAVE10")], "codes are scoped per restaurant")
	assert.True(t, idx.keys[key("R3", "NEW3")])
	assert.False(t, idx.active[key("R1", "PAUSED")])
	assert.True(t, idx.active[key("R1", "NEW1")])
	assert.Equal(t, 2, idx.existsCalls, "only filter hits reach the store")
}

func TestImporter_CreateFailureStopsRun(t *testing.T) {
	idx := newMemIndex()
	idx.createErr = errors.New("connection reset")
	path := writeGz(t, line("R1", "A"))

	_, err := newTestImporter(idx).Run(context.Background(), []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Contains(t, err.Error(), "line 1")
}

func TestImporter_MissingFile(t *testing.T) {
	_, err := newTestImporter(newMemIndex()).Run(context.Background(),
		[]string{filepath.Join(t.TempDir(), "nope.gz")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.gz")
}

func TestImporter_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(line("R1", "A")), 0o600))

	_, err := newTestImporter(newMemIndex()).Run(context.Background(), []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gzip reader")
}

func TestImporter_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := writeGz(t, line("R1", "A"))
	_, err := newTestImporter(newMemIndex()).Run(ctx, []string{path})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecodeRecord(t *testing.T) {
	r, err := decodeRecord([]byte(line(" R1 ", " CODE ",
		`"discountValue":"12.5"`,
		`"maxUses":3`,
		`"description":"twelve and a half"`,
	)))
	require.NoError(t, err)

	assert.Equal(t, "CODE", r.Params.Code)
	assert.Equal(t, "R1", r.Params.RestaurantID)
	assert.Equal(t, coupon.DiscountPercentage, r.Params.DiscountType)
	assert.Equal(t, "12.5", r.Params.DiscountValue.String(), "later duplicate key wins")
	assert.Equal(t, 3, r.Params.MaxUses)
	assert.Equal(t, 2024, r.Params.StartDate.Year())
	assert.True(t, r.Active)

	_, err = decodeRecord([]byte(`{"startDate":"yesterday"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startDate")
}
