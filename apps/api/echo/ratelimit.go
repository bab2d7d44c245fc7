package echoapi

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// tokenBucket is an in-memory per-client rate limiter refilled every minute.
type tokenBucket struct {
	capacity int
	rate     int // tokens per minute
	mu       sync.Mutex
	state    map[string]*bucket
	swept    time.Time
	now      func() time.Time
}

type bucket struct {
	tokens int
	last   time.Time // time the tokens were last counted up to
}

func newTokenBucket(capacity, perMinute int) *tokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &tokenBucket{
		capacity: capacity,
		rate:     perMinute,
		state:    make(map[string]*bucket),
		now:      time.Now,
	}
}

// Middleware enforces the limit per client IP. A limiter without rate lets everything through.
func (l *tokenBucket) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if l.rate <= 0 {
				return next(ctx)
			}
			ip := ctx.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			if !l.allow(ip) {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}

// interval is the time it takes to earn one token.
func (l *tokenBucket) interval() time.Duration {
	return time.Minute / time.Duration(l.rate)
}

func (l *tokenBucket) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	b, ok := l.state[key]
	if !ok {
		l.state[key] = &bucket{tokens: l.capacity - 1, last: now}
		return true
	}
	if refill := int(now.Sub(b.last) / l.interval()); refill > 0 {
		b.tokens += refill
		if b.tokens >= l.capacity {
			b.tokens = l.capacity
			b.last = now
		} else {
			// keep the time already spent towards the next token
			b.last = b.last.Add(time.Duration(refill) * l.interval())
		}
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// prune drops the buckets that have refilled completely, since they behave like new ones.
// It runs at most once per refill period.
func (l *tokenBucket) prune(now time.Time) {
	full := time.Duration(l.capacity) * l.interval()
	if now.Sub(l.swept) < full {
		return
	}
	l.swept = now
	for key, b := range l.state {
		if now.Sub(b.last) >= time.Duration(l.capacity-b.tokens)*l.interval() {
			delete(l.state, key)
		}
	}
}
