package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifequest/internal/timeutil"
)

type counter struct {
	calls int
	value []string
	err   error
}

func (c *counter) fetch(context.Context) ([]string, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return append([]string(nil), c.value...), nil
}

func cloneStrings(v []string) []string { return append([]string(nil), v...) }

func newTestCache(t *testing.T) (*Cache[[]string], *timeutil.FakeClock) {
	t.Helper()
	clock := timeutil.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	c := New[[]string]("quests", Options[[]string]{
		TTL:           10 * time.Second,
		FetchThrottle: 2 * time.Second,
		Clock:         clock,
		Clone:         cloneStrings,
	})
	return c, clock
}

func TestCache_ServesFreshEntryWithinTTL(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()
	src := &counter{value: []string{"a"}}

	v, err := c.Get(ctx, "u1", false, src.fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v)

	src.value = []string{"b"}
	clock.Advance(9 * time.Second)
	v, err = c.Get(ctx, "u1", false, src.fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v)
	assert.Equal(t, 1, src.calls)

	clock.Advance(2 * time.Second)
	v, err = c.Get(ctx, "u1", false, src.fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, v)
	assert.Equal(t, 2, src.calls)
}

func TestCache_ForceBypassesTTLAndThrottle(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	src := &counter{value: []string{"a"}}

	_, err := c.Get(ctx, "u1", false, src.fetch)
	require.NoError(t, err)
	_, err = c.Get(ctx, "u1", true, src.fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCache_ThrottleServesStaleEntry(t *testing.T) {
	clock := timeutil.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	c := New[[]string]("quests", Options[[]string]{
		TTL:           time.Second,
		FetchThrottle: 5 * time.Second,
		Clock:         clock,
	})
	ctx := context.Background()
	src := &counter{value: []string{"a"}}

	_, err := c.Get(ctx, "u1", false, src.fetch)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = c.Get(ctx, "u1", false, src.fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls, "expired but inside the throttle window")

	clock.Advance(4 * time.Second)
	_, err = c.Get(ctx, "u1", false, src.fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCache_FailedFetchDoesNotPoison(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()
	src := &counter{value: []string{"a"}}

	_, err := c.Get(ctx, "u1", false, src.fetch)
	require.NoError(t, err)

	src.err = errors.New("store down")
	clock.Advance(time.Minute)
	_, err = c.Get(ctx, "u1", false, src.fetch)
	assert.EqualError(t, err, "store down")

	v, ok := c.Peek("u1")
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, v)

	empty, _ := newTestCache(t)
	_, err = empty.Get(ctx, "u1", false, src.fetch)
	assert.Error(t, err)
	_, ok = empty.Peek("u1")
	assert.False(t, ok)
}

func TestCache_UpdateInPlace(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	src := &counter{value: []string{"a"}}

	assert.False(t, c.Update("u1", func(v []string) []string { return append(v, "x") }))

	_, err := c.Get(ctx, "u1", false, src.fetch)
	require.NoError(t, err)
	assert.True(t, c.Update("u1", func(v []string) []string { return append(v, "b") }))

	v, err := c.Get(ctx, "u1", false, src.fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)
	assert.Equal(t, 1, src.calls)
}

func TestCache_ReturnedValuesAreCopies(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	src := &counter{value: []string{"a"}}

	v, err := c.Get(ctx, "u1", false, src.fetch)
	require.NoError(t, err)
	v[0] = "mutated"

	again, ok := c.Peek("u1")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, again)
}

func TestPending_RollbackRestoresPrevious(t *testing.T) {
	c, _ := newTestCache(t)
	c.Set("u1", []string{"a"})

	p := c.Stage("u1", func(v []string) []string { return append(v, "projected") })
	v, _ := c.Peek("u1")
	assert.Equal(t, []string{"a", "projected"}, v)

	p.Rollback()
	v, _ = c.Peek("u1")
	assert.Equal(t, []string{"a"}, v)

	p.Commit()
	v, _ = c.Peek("u1")
	assert.Equal(t, []string{"a"}, v, "only the first resolution counts")
}

func TestPending_ConfirmReplacesProjection(t *testing.T) {
	c, _ := newTestCache(t)
	c.Set("u1", []string{"a"})

	p := c.Stage("u1", func(v []string) []string { return append(v, "projected") })
	p.Confirm([]string{"a", "stored"})

	v, _ := c.Peek("u1")
	assert.Equal(t, []string{"a", "stored"}, v)
}

func TestPending_SupersededRollbackInvalidates(t *testing.T) {
	c, _ := newTestCache(t)
	c.Set("u1", []string{"a"})

	first := c.Stage("u1", func(v []string) []string { return append(v, "first") })
	second := c.Stage("u1", func(v []string) []string { return append(v, "second") })

	first.Rollback()
	_, ok := c.Peek("u1")
	assert.False(t, ok, "the entry no longer reflects a single known state")

	second.Commit()
	_, ok = c.Peek("u1")
	assert.False(t, ok)
}

func TestPending_WithoutEntryIsInert(t *testing.T) {
	c, _ := newTestCache(t)
	p := c.Stage("u1", func(v []string) []string { return append(v, "x") })
	p.Rollback()
	_, ok := c.Peek("u1")
	assert.False(t, ok)
}

func TestCache_FetchDoesNotOverwriteNewerWrite(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	v, err := c.Get(ctx, "u1", true, func(context.Context) ([]string, error) {
		// A mutation lands while the read is in flight.
		c.Set("u1", []string{"written"})
		return []string{"stale read"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"written"}, v)
}
