// Package backoff produces decaying poll intervals.
//
// A Schedule yields an unbounded sequence of wait durations. The
// pre-jitter base starts at one second and grows by a fixed step on
// every call until it reaches a ceiling, after which it holds. A fresh
// uniform jitter in [0,1) seconds is added to every value, so many
// clients polling the same server drift apart instead of hammering it
// in lockstep.
package backoff

import (
	"math/rand/v2"
	"time"
)

// Default schedule parameters.
const (
	DefaultStep    = 1.0
	DefaultCeiling = 60.0
)

// Options configures a Schedule.
type Options struct {
	// Step is the per-call base increment in seconds. Default: 1.0
	Step float64

	// Ceiling is the maximum pre-jitter base in seconds. Default: 60
	Ceiling float64

	// Rand returns a uniform value in [0,1). Default: math/rand/v2.
	Rand func() float64
}

// Option is a functional option for configuring a Schedule.
type Option func(*Options)

// WithStep sets the per-call base increment in seconds.
func WithStep(step float64) Option {
	return func(o *Options) {
		o.Step = step
	}
}

// WithCeiling sets the maximum pre-jitter base in seconds.
func WithCeiling(ceiling float64) Option {
	return func(o *Options) {
		o.Ceiling = ceiling
	}
}

// WithRand sets the jitter source. Inject a seeded source for
// deterministic tests.
func WithRand(fn func() float64) Option {
	return func(o *Options) {
		o.Rand = fn
	}
}

// Schedule yields decaying wait durations. Not safe for concurrent use;
// each waiting operation creates its own Schedule.
type Schedule struct {
	base    float64
	step    float64
	ceiling float64
	rand    func() float64
}

// New creates a Schedule starting at a one second base.
func New(options ...Option) *Schedule {
	opts := Options{
		Step:    DefaultStep,
		Ceiling: DefaultCeiling,
		Rand:    rand.Float64,
	}
	for _, opt := range options {
		opt(&opts)
	}

	return &Schedule{
		base:    1.0,
		step:    opts.Step,
		ceiling: opts.Ceiling,
		rand:    opts.Rand,
	}
}

// Next returns the next wait duration: the current base plus fresh
// jitter in [0,1) seconds. The base grows by the step until it reaches
// the ceiling, then holds. Never returns an error; the sequence is
// infinite.
func (s *Schedule) Next() time.Duration {
	v := s.base + s.rand()
	if s.base < s.ceiling {
		s.base += s.step
	}
	return time.Duration(v * float64(time.Second))
}

// Base returns the current pre-jitter base in seconds.
func (s *Schedule) Base() float64 {
	return s.base
}
