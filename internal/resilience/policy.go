package resilience

import "time"

// Config controls retries and circuit breaking for one Executor.
type Config struct {
	// Attempts is the total number of tries per call. 1 disables retries.
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration

	Breaker BreakerSettings
}

// BreakerSettings configures the per-operation circuit breakers.
type BreakerSettings struct {
	Enabled bool
	// MinRequests is the number of calls in a window before the failure
	// ratio can trip the breaker.
	MinRequests   uint32
	FailureRatio  float64
	OpenTimeout   time.Duration
	HalfOpenCalls uint32
}

// DefaultConfig suits ingestion calls, which can afford to wait and retry.
func DefaultConfig() Config {
	return Config{
		Attempts:  3,
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  400 * time.Millisecond,
		Breaker: BreakerSettings{
			Enabled:       true,
			MinRequests:   10,
			FailureRatio:  0.5,
			OpenTimeout:   30 * time.Second,
			HalfOpenCalls: 2,
		},
	}
}

// SearchConfig makes a single attempt per call. Searches fall back instead
// of waiting, so only the breaker protects the service.
func SearchConfig() Config {
	cfg := DefaultConfig()
	cfg.Attempts = 1
	return cfg
}

// withDefaults fills zero and out-of-range fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.Attempts <= 0 {
		c.Attempts = def.Attempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	c.MaxDelay = max(c.MaxDelay, c.BaseDelay)

	b := &c.Breaker
	if b.MinRequests == 0 {
		b.MinRequests = def.Breaker.MinRequests
	}
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		b.FailureRatio = def.Breaker.FailureRatio
	}
	if b.OpenTimeout <= 0 {
		b.OpenTimeout = def.Breaker.OpenTimeout
	}
	if b.HalfOpenCalls == 0 {
		b.HalfOpenCalls = def.Breaker.HalfOpenCalls
	}
	return c
}
