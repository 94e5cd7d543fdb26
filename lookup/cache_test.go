package lookup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := OpenCache(filepath.Join(t.TempDir(), "cache", "signatures.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestEntryCBOR(t *testing.T) {
	at := time.Unix(1700000000, 0)
	data, err := MarshalEntry(Entry{Value: "balanceOf(address)", Source: "dune", FetchedAt: at})
	require.NoError(t, err)

	again, err := MarshalEntry(Entry{Value: "balanceOf(address)", Source: "dune", FetchedAt: at})
	require.NoError(t, err)
	assert.Equal(t, data, again, "canonical encoding is deterministic")

	e, err := UnmarshalEntry(data)
	require.NoError(t, err)
	assert.Equal(t, "balanceOf(address)", e.Value)
	assert.Equal(t, "dune", e.Source)
	assert.False(t, e.NotFound)
	assert.Equal(t, at.Unix(), e.FetchedAt.Unix())

	_, err = UnmarshalEntry([]byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestCachePutGet(t *testing.T) {
	c := openTestCache(t, 0)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, OpFunctionSignature, "0x70a08231")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, OpFunctionSignature, "0x70a08231", Entry{Value: "balanceOf(address)"}))
	e, ok, err := c.Get(ctx, OpFunctionSignature, "0x70a08231")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "balanceOf(address)", e.Value)
	assert.False(t, e.FetchedAt.IsZero())

	// same key, other operation
	_, ok, err = c.Get(ctx, OpContractName, "0x70a08231")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, OpFunctionSignature, "0x70a08231", Entry{Value: "other()"}))
	e, _, err = c.Get(ctx, OpFunctionSignature, "0x70a08231")
	require.NoError(t, err)
	assert.Equal(t, "other()", e.Value)
}

func TestCacheExpiry(t *testing.T) {
	c := openTestCache(t, time.Hour)
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Put(ctx, OpFunctionSignature, "0x01020304", Entry{Value: "a()"}))
	require.NoError(t, c.Put(ctx, OpFunctionSignature, "0x05060708", Entry{Value: "b()", FetchedAt: now.Add(30 * time.Minute)}))

	_, ok, err := c.Get(ctx, OpFunctionSignature, "0x01020304")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(61 * time.Minute)
	_, ok, err = c.Get(ctx, OpFunctionSignature, "0x01020304")
	require.NoError(t, err)
	assert.False(t, ok, "entry older than ttl")

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err = c.Get(ctx, OpFunctionSignature, "0x05060708")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCachePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signatures.db")
	ctx := context.Background()

	c, err := OpenCache(path, 0)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, OpContractName, "0xabc", Entry{Value: "SwapRouter"}))
	require.NoError(t, c.Close())

	c, err = OpenCache(path, 0)
	require.NoError(t, err)
	defer c.Close()
	e, ok, err := c.Get(ctx, OpContractName, "0xabc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "SwapRouter", e.Value)
}

func TestCacheInMemory(t *testing.T) {
	c, err := OpenCache(":memory:", 0)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Put(ctx, OpFunctionSignature, "0x01", Entry{Value: "x()"}))
	_, ok, err := c.Get(ctx, OpFunctionSignature, "0x01")
	require.NoError(t, err)
	assert.True(t, ok)
}
