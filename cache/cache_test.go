package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/mcsim/xerrors"
)

type entry struct {
	Mean   float64   `json:"mean"`
	Values []float64 `json:"values"`
}

func newTestCache(t *testing.T, compress bool) *BigCache {
	t.Helper()
	c, err := NewBigCache(Options{LifeWindow: time.Minute, Shards: 16, Compress: compress})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBigCache_SetGet(t *testing.T) {
	ctx := context.Background()
	for _, compress := range []bool{false, true} {
		c := newTestCache(t, compress)
		in := entry{Mean: 1.25, Values: []float64{1, 2, 3}}
		require.NoError(t, c.Set(ctx, "k", in))

		var out entry
		require.NoError(t, c.Get(ctx, "k", &out))
		assert.Equal(t, in, out)

		ok, err := c.Exists(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, c.Len())

		require.NoError(t, c.Delete(ctx, "k", "absent"))
		ok, err = c.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestBigCache_Miss(t *testing.T) {
	c := newTestCache(t, true)
	var out entry
	err := c.Get(context.Background(), "nope", &out)
	require.Error(t, err)
	assert.True(t, IsMiss(err))
	e, ok := xerrors.FromError(err)
	require.True(t, ok)
	assert.Equal(t, 3, e.ExitCode())
}

func TestNewBigCache_InvalidLifeWindow(t *testing.T) {
	_, err := NewBigCache(Options{})
	assert.True(t, xerrors.IsInvalidArgument(err))
}

func TestKey(t *testing.T) {
	type params struct {
		Paths int
		Seed  uint64
	}
	a, err := Key("run", "gbm", params{Paths: 100, Seed: 1})
	require.NoError(t, err)
	b, err := Key("run", "gbm", params{Paths: 100, Seed: 1})
	require.NoError(t, err)
	c, err := Key("run", "gbm", params{Paths: 100, Seed: 2})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "run:"))

	_, err = Key("run", func() {})
	assert.True(t, xerrors.IsInvalidArgument(err))
}

func TestCompressRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("monte carlo ", 100))
	packed := compress(data)
	assert.Less(t, len(packed), len(data))

	out, err := decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	_, err = decompress([]byte("not zstd"))
	assert.Error(t, err)
}
