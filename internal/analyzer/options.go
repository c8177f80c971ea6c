package analyzer

import (
	"time"

	"go-trustshield/pkg/models"
)

// Options configures the submission driver of one analyzer
type Options struct {
	// StageInterval is the progress timeline cadence
	StageInterval time.Duration

	// SurfaceFallback marks results synthesized after a failed call as
	// fallbacks. When false they are published like service responses.
	SurfaceFallback bool
}

// DefaultOptions returns the cadence observed for each analyzer
func DefaultOptions(kind models.Kind) Options {
	opts := Options{
		StageInterval:   900 * time.Millisecond,
		SurfaceFallback: true,
	}
	switch kind {
	case models.KindDocument:
		opts.StageInterval = time.Second
	case models.KindURL:
		opts.StageInterval = 800 * time.Millisecond
	}
	return opts
}

// WithStageInterval overrides the timeline cadence
func (opts Options) WithStageInterval(d time.Duration) Options {
	if d > 0 {
		opts.StageInterval = d
	}
	return opts
}

// WithSilentFallback publishes fallback results without marking them
func (opts Options) WithSilentFallback() Options {
	opts.SurfaceFallback = false
	return opts
}
