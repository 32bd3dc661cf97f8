package ratelimit

import "time"

// Limiter decides whether one more request under key may pass.
type Limiter interface {
	Allow(key string) bool
}

// Clock provides current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Unlimited lets every request through. Used when rate limiting is switched off.
type Unlimited struct{}

// Allow always returns true.
func (Unlimited) Allow(string) bool { return true }
