package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock is a settable clock for window tests.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

var authPolicy = Policy{Name: "auth", Max: 10, Window: time.Minute}

func TestLimiter_AllowsUpToMax(t *testing.T) {
	l := New(Config{})

	for i := range authPolicy.Max {
		res := l.Check(authPolicy, "1.2.3.4")
		assert.True(t, res.Allowed, "request %d within quota", i+1)
	}
}

func TestLimiter_DeniesOverMax(t *testing.T) {
	clock := newFixedClock()
	l := New(Config{Now: clock.Now})

	for range authPolicy.Max {
		require.True(t, l.Check(authPolicy, "1.2.3.4").Allowed)
	}

	res := l.Check(authPolicy, "1.2.3.4")
	assert.False(t, res.Allowed, "request max+1 is denied")
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter, authPolicy.Window)
}

func TestLimiter_WindowReset(t *testing.T) {
	clock := newFixedClock()
	l := New(Config{Now: clock.Now})

	for range authPolicy.Max {
		require.True(t, l.Check(authPolicy, "1.2.3.4").Allowed)
	}
	require.False(t, l.Check(authPolicy, "1.2.3.4").Allowed)

	clock.Advance(authPolicy.Window + time.Second)
	assert.True(t, l.Check(authPolicy, "1.2.3.4").Allowed, "a new window starts fresh")
}

func TestLimiter_WindowSlidesWithActivity(t *testing.T) {
	clock := newFixedClock()
	l := New(Config{Now: clock.Now})

	// Fill the quota with the last allowed hit at t=30s. Each allowed hit
	// refreshes the TTL, so the counter lives until t=90s, not t=60s.
	require.True(t, l.Check(authPolicy, "1.2.3.4").Allowed)
	clock.Advance(30 * time.Second)
	for range authPolicy.Max - 1 {
		require.True(t, l.Check(authPolicy, "1.2.3.4").Allowed)
	}

	clock.Advance(50 * time.Second)
	res := l.Check(authPolicy, "1.2.3.4")
	require.False(t, res.Allowed, "counter filled at t=30s is still live at t=80s")
	assert.LessOrEqual(t, res.RetryAfter, 10*time.Second)

	clock.Advance(11 * time.Second)
	assert.True(t, l.Check(authPolicy, "1.2.3.4").Allowed, "counter expires a full window after the last allowed hit")
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := New(Config{})

	for range authPolicy.Max {
		require.True(t, l.Check(authPolicy, "1.2.3.4").Allowed)
	}
	require.False(t, l.Check(authPolicy, "1.2.3.4").Allowed)

	assert.True(t, l.Check(authPolicy, "5.6.7.8").Allowed, "other clients are unaffected")
}

func TestLimiter_PoliciesAreScoped(t *testing.T) {
	l := New(Config{})
	sensitive := Policy{Name: "sensitive", Max: 3, Window: time.Hour}

	for range sensitive.Max {
		require.True(t, l.Check(sensitive, "1.2.3.4").Allowed)
	}
	require.False(t, l.Check(sensitive, "1.2.3.4").Allowed)

	// The same key under a different policy has its own counter.
	assert.True(t, l.Check(authPolicy, "1.2.3.4").Allowed)
}

func TestLimiter_InstancesAreIndependent(t *testing.T) {
	// Each limiter is process-local: exhausting one leaves the other open.
	a := New(Config{})
	b := New(Config{})

	for range authPolicy.Max {
		require.True(t, a.Check(authPolicy, "1.2.3.4").Allowed)
	}
	require.False(t, a.Check(authPolicy, "1.2.3.4").Allowed)
	assert.True(t, b.Check(authPolicy, "1.2.3.4").Allowed)
}

func TestLimiter_EvictsLeastRecentlyUsed(t *testing.T) {
	l := New(Config{Capacity: 3})
	api := Policy{Name: "api", Max: 1, Window: time.Minute}

	require.True(t, l.Check(api, "a").Allowed)
	require.True(t, l.Check(api, "b").Allowed)
	require.True(t, l.Check(api, "c").Allowed)
	require.False(t, l.Check(api, "a").Allowed, "a is still tracked")

	// A fourth key evicts the least recently used entry (b).
	require.True(t, l.Check(api, "d").Allowed)
	assert.Equal(t, 3, l.Keys())
	assert.True(t, l.Check(api, "b").Allowed, "evicted key starts a fresh window")
	assert.False(t, l.Check(api, "a").Allowed, "recently used key survived eviction")
}

func TestLimiter_ExpiredEntryRestartsWindow(t *testing.T) {
	clock := newFixedClock()
	l := New(Config{Now: clock.Now})
	api := Policy{Name: "api", Max: 2, Window: time.Minute}

	require.True(t, l.Check(api, "a").Allowed)
	clock.Advance(2 * time.Minute)

	for i := range api.Max {
		assert.True(t, l.Check(api, "a").Allowed, "request %d of the new window", i+1)
	}
	assert.False(t, l.Check(api, "a").Allowed)
}

func TestLimiter_ManyKeysStayBounded(t *testing.T) {
	l := New(Config{Capacity: 100})
	api := Policy{Name: "api", Max: 5, Window: time.Minute}

	for i := range 1000 {
		l.Check(api, fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	assert.LessOrEqual(t, l.Keys(), 100)
}
