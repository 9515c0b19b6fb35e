package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddlkit/sdk/types"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedisCache(RedisOptions{
		URL: "redis://" + mr.Addr(),
		TTL: 10 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, mr
}

func TestKeyDeterminism(t *testing.T) {
	k1 := Key("http://planner.test/solve", "(domain)", "(problem)", types.FormatJSON)
	k2 := Key("http://planner.test/solve", "(domain)", "(problem)", types.FormatJSON)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)

	// Every input participates in the digest.
	assert.NotEqual(t, k1, Key("http://other.test/solve", "(domain)", "(problem)", types.FormatJSON))
	assert.NotEqual(t, k1, Key("http://planner.test/solve", "(domain2)", "(problem)", types.FormatJSON))
	assert.NotEqual(t, k1, Key("http://planner.test/solve", "(domain)", "(problem2)", types.FormatJSON))
	assert.NotEqual(t, k1, Key("http://planner.test/solve", "(domain)", "(problem)", types.FormatTasks))

	// Field boundaries matter: shifting text between fields changes the key.
	assert.NotEqual(t,
		Key("http://planner.test/solve", "ab", "c", types.FormatJSON),
		Key("http://planner.test/solve", "a", "bc", types.FormatJSON))
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	plans := []*types.Plan{
		{
			Steps: []types.PlanStep{
				{Time: 0, ActionName: "load c1 t1", IsDurative: true, Duration: 2},
				{Time: 2, ActionName: "drive t1 d1 d2", Duration: 0.001, OrderIndex: 1},
			},
			Meta: types.PlanMetaData{MetricValue: 7},
		},
	}

	key := Key("http://planner.test/solve", "(d)", "(p)", types.FormatJSON)
	require.NoError(t, c.Put(ctx, key, plans))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, plans[0].Steps, got[0].Steps)
	assert.Equal(t, 7.0, got[0].Meta.MetricValue)
}

func TestRedisCacheMiss(t *testing.T) {
	c, _ := newTestCache(t)

	got, ok, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestRedisCacheEmptyPlanList(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	// The store itself round-trips an empty list without treating it as
	// a miss; policy about storing one lives with the caller.
	require.NoError(t, c.Put(ctx, "unsolvable", []*types.Plan{}))

	got, ok, err := c.Get(ctx, "unsolvable")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestRedisCacheTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", []*types.Plan{}))
	assert.Equal(t, 10*time.Minute, mr.TTL("plans:k"))

	mr.FastForward(11 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheEvictsCorruptEntries(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("plans:bad", "not json"))

	_, ok, err := c.Get(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("plans:bad"), "corrupt entries are evicted on read")
}

func TestNopCache(t *testing.T) {
	var c Cache = Nop{}
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", []*types.Plan{{}}))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Close())
}
