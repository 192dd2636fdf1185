package resilience

import "time"

// Config tunes the retry schedule and the per-operation circuit breakers.
// Zero values fall back to DefaultConfig.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()

	c.RetryMaxAttempts = fallbackInt(c.RetryMaxAttempts, def.RetryMaxAttempts)
	c.RetryInitialBackoff = fallbackDuration(c.RetryInitialBackoff, def.RetryInitialBackoff)
	c.RetryMaxBackoff = fallbackDuration(c.RetryMaxBackoff, def.RetryMaxBackoff)
	if c.RetryMaxBackoff < c.RetryInitialBackoff {
		c.RetryMaxBackoff = c.RetryInitialBackoff
	}
	if c.RetryMultiplier < 1.0 {
		c.RetryMultiplier = def.RetryMultiplier
	}

	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = def.BreakerMinRequests
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	c.BreakerOpenTimeout = fallbackDuration(c.BreakerOpenTimeout, def.BreakerOpenTimeout)
	if c.BreakerHalfOpenMaxCalls == 0 {
		c.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return c
}

func fallbackInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func fallbackDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
