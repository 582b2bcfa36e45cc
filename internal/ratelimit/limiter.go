package ratelimit

import (
	"context"
	"time"
)

// Class partitions traffic so each endpoint family gets its own window.
type Class string

const (
	ClassRead     Class = "read"
	ClassMutation Class = "mutation"
	ClassChart    Class = "chart"
	ClassIngest   Class = "ingest"
)

// Result reports the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetTime time.Time
}

// Limiter bounds request rate per (caller, class) key over a fixed window.
type Limiter interface {
	// Allow records one request against the key and reports whether it
	// fits the window.
	Allow(ctx context.Context, key string, class Class) (Result, error)

	// Close releases background resources.
	Close() error
}

// Limits holds the per-class maxima and the shared window size.
type Limits struct {
	Window      time.Duration
	ReadMax     int
	MutationMax int
	ChartMax    int
	IngestMax   int
}

// Max returns the configured maximum for a class.
func (l Limits) Max(class Class) int {
	switch class {
	case ClassMutation:
		return l.MutationMax
	case ClassChart:
		return l.ChartMax
	case ClassIngest:
		return l.IngestMax
	default:
		return l.ReadMax
	}
}
