package echoapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func (c *fakeClock) set(t0 time.Time, d time.Duration) {
	c.t = t0.Add(d)
}

func newTestBucket(capacity, perMinute int) (*tokenBucket, *fakeClock, time.Time) {
	t0 := time.Date(2021, 3, 5, 18, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: t0}
	l := newTokenBucket(capacity, perMinute)
	l.now = clock.now
	return l, clock, t0
}

func TestTokenBucket_allow(t *testing.T) {
	l, clock, _ := newTestBucket(2, 60) // one token per second

	assert.True(t, l.allow("1.2.3.4"))
	assert.True(t, l.allow("1.2.3.4"))
	assert.False(t, l.allow("1.2.3.4"))
	assert.True(t, l.allow("5.6.7.8"), "clients have their own bucket")

	clock.advance(1500 * time.Millisecond)
	assert.True(t, l.allow("1.2.3.4"))
	assert.False(t, l.allow("1.2.3.4"))

	// the half second left over from the previous refill counts towards the next token
	clock.advance(500 * time.Millisecond)
	assert.True(t, l.allow("1.2.3.4"))
	assert.False(t, l.allow("1.2.3.4"))
}

func TestTokenBucket_prune(t *testing.T) {
	l, clock, t0 := newTestBucket(3, 60)

	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("b"))
	assert.Len(t, l.state, 2)

	// a and b have refilled by now
	clock.set(t0, 3*time.Second)
	assert.True(t, l.allow("x"))
	assert.Len(t, l.state, 1)
	assert.Contains(t, l.state, "x")

	clock.set(t0, 5*time.Second)
	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("x"))
	}
	assert.False(t, l.allow("x"))

	// x is still draining and survives the sweep
	clock.set(t0, 6*time.Second)
	assert.True(t, l.allow("y"))
	assert.Len(t, l.state, 2)
	assert.Contains(t, l.state, "x")
}
