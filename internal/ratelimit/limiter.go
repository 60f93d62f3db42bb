package ratelimit

import (
	"context"
	"time"
)

// Limiter gates outbound requests for one provider.
type Limiter interface {
	// Wait blocks until a request may proceed or the context is canceled.
	Wait(ctx context.Context) error
	// Allow reports whether a request may proceed right now, consuming a
	// slot when it does.
	Allow() bool
	// Reserve returns how long to wait before the next request may proceed.
	Reserve() time.Duration
	// Reset returns the limiter to its initial capacity.
	Reset()
}

// Strategy selects a limiter implementation.
type Strategy string

const (
	StrategyTokenBucket Strategy = "token_bucket"
	StrategyFixedWindow Strategy = "fixed_window"
)

// Config holds rate limiter settings for one provider.
type Config struct {
	Strategy       Strategy `yaml:"strategy"`
	RequestsPerSec float64  `yaml:"requests_per_second"`
	Burst          int      `yaml:"burst"`
}

func applyDefaults(cfg Config) Config {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyTokenBucket
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 2.0
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return cfg
}

// New creates a limiter for the configured strategy.
func New(cfg Config) Limiter {
	cfg = applyDefaults(cfg)
	switch cfg.Strategy {
	case StrategyFixedWindow:
		return NewFixedWindow(cfg)
	default:
		return NewTokenBucket(cfg)
	}
}
