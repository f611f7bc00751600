package ratelimit

// Package ratelimit throttles repeated requests per client key within a
// sliding window. Counters live in a process-local LRU cache: each instance
// enforces its own quota and no cross-instance limit is guaranteed.

import (
	"container/list"
	"sync"
	"time"
)

// counterCache is a small in-memory LRU of request counters with per-entry
// TTL. Concurrency: methods are safe for concurrent use.
type counterCache struct {
	mu    sync.Mutex
	cap   int
	ll    *list.List               // front = most-recently used
	items map[string]*list.Element // key -> element
	now   func() time.Time         // injectable clock for tests
}

type counterEntry struct {
	key    string
	count  int
	expiry time.Time
}

func newCounterCache(capacity int, now func() time.Time) *counterCache {
	if capacity <= 0 {
		capacity = 8192
	}
	if now == nil {
		now = time.Now
	}
	return &counterCache{
		cap:   capacity,
		ll:    list.New(),
		items: make(map[string]*list.Element, capacity),
		now:   now,
	}
}

// bump reads the live counter for key, increments it when it is below max,
// and returns the pre-increment count plus the time left in the window.
// Every allowed increment resets the entry TTL to the full window, so the
// window slides with activity; only a denied request leaves it untouched.
func (c *counterCache) bump(key string, max int, window time.Duration) (count int, remaining time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, found := c.items[key]; found {
		ent := el.Value.(*counterEntry)
		if now.After(ent.expiry) {
			c.removeElement(el)
		} else {
			c.ll.MoveToFront(el)
			if ent.count >= max {
				return ent.count, ent.expiry.Sub(now)
			}
			ent.count++
			ent.expiry = now.Add(window)
			return ent.count - 1, window
		}
	}

	el := c.ll.PushFront(&counterEntry{key: key, count: 1, expiry: now.Add(window)})
	c.items[key] = el
	c.evictIfNeeded()
	return 0, window
}

// caller must hold c.mu.
func (c *counterCache) removeElement(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*counterEntry).key)
}

// caller must hold c.mu.
func (c *counterCache) evictIfNeeded() {
	for c.ll.Len() > c.cap {
		el := c.ll.Back()
		if el == nil {
			return
		}
		c.removeElement(el)
	}
}

func (c *counterCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Result is the outcome of a limiter check.
type Result struct {
	Allowed bool
	// RetryAfter is how long the caller should wait before retrying.
	// Zero when Allowed.
	RetryAfter time.Duration
}

// Policy is a named (max, window) pair applied to one class of endpoints.
type Policy struct {
	Name   string
	Max    int
	Window time.Duration
}

// Limiter enforces per-key request quotas using one shared counter cache.
type Limiter struct {
	cache *counterCache
}

// Config groups constructor options for Limiter.
type Config struct {
	Capacity int
	Now      func() time.Time
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	return &Limiter{cache: newCounterCache(cfg.Capacity, cfg.Now)}
}

// Check applies the policy to the key. Keys are scoped by policy name so
// the same client IP tracks independently per endpoint class.
func (l *Limiter) Check(policy Policy, key string) Result {
	count, remaining := l.cache.bump(policy.Name+":"+key, policy.Max, policy.Window)
	if count >= policy.Max {
		retry := remaining
		if retry <= 0 {
			retry = time.Second
		}
		return Result{Allowed: false, RetryAfter: retry}
	}
	return Result{Allowed: true}
}

// Keys returns the number of tracked keys, for observability.
func (l *Limiter) Keys() int { return l.cache.len() }
