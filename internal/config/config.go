// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// TransitionQueueSize bounds the in-memory transition job queue.
	TransitionQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of transition dispatch workers.
	WorkerCount int `koanf:"worker_count"`

	// InflightCapacity pre-sizes the per-visit in-flight tracker.
	InflightCapacity int `koanf:"inflight_capacity"`

	// StoreCapacity pre-sizes the visit record store.
	StoreCapacity int `koanf:"store_capacity"`

	// SourceBaseURL points at the visit-record source and status
	// mutation collaborator.
	SourceBaseURL string `koanf:"source_base_url"`

	// RemoteTimeoutMS bounds each collaborator call. A timeout is a
	// remote failure like any other.
	RemoteTimeoutMS int `koanf:"remote_timeout_ms"`

	// SourceRateRPS and SourceRateBurst bound outbound collaborator
	// request rate.
	SourceRateRPS   float64 `koanf:"source_rate_rps"`
	SourceRateBurst int     `koanf:"source_rate_burst"`

	// SourceMaxConcurrent bounds concurrent per-rep batch fetches.
	SourceMaxConcurrent int `koanf:"source_max_concurrent"`

	// MaxListLimit caps GET /visits?limit.
	MaxListLimit int `koanf:"max_list_limit"`

	// RefreshReps lists representatives to refresh from the source on
	// startup. Empty means no startup refresh.
	RefreshReps []string `koanf:"refresh_reps"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		TransitionQueueSize: 4096,
		WorkerCount:         runtime.NumCPU() * 2,
		InflightCapacity:    1024,
		StoreCapacity:       4096,
		SourceBaseURL:       "http://localhost:8080",
		RemoteTimeoutMS:     10_000,
		SourceRateRPS:       20,
		SourceRateBurst:     10,
		SourceMaxConcurrent: 4,
		MaxListLimit:        500,
	}
}
