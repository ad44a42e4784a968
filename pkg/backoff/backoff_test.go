package backoff

import (
	"math/rand/v2"
	"testing"
	"time"
)

func TestNextWithinJitterWindow(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	s := New(WithRand(rng.Float64))

	// Base starts at 1 and grows by 1 per call, so call n (0-based)
	// must return a value in [n+1, n+2) seconds.
	for n := 0; n < 100; n++ {
		base := float64(n + 1)
		if base > DefaultCeiling {
			base = DefaultCeiling
		}
		d := s.Next()
		lo := time.Duration(base * float64(time.Second))
		hi := time.Duration((base + 1) * float64(time.Second))
		if d < lo || d >= hi {
			t.Fatalf("call %d: %s outside [%s, %s)", n, d, lo, hi)
		}
	}
}

func TestBaseNonDecreasingAndCapped(t *testing.T) {
	s := New(WithRand(func() float64 { return 0 }), WithCeiling(5))

	prev := time.Duration(0)
	for n := 0; n < 20; n++ {
		d := s.Next()
		if d < prev {
			t.Fatalf("call %d: %s decreased below %s", n, d, prev)
		}
		prev = d
	}
	// With zero jitter the value is exactly the base, which must hold
	// at the ceiling once reached.
	if prev != 5*time.Second {
		t.Fatalf("expected capped base of 5s, got %s", prev)
	}
}

func TestFirstValue(t *testing.T) {
	s := New(WithRand(func() float64 { return 0.25 }))
	d := s.Next()
	if d != 1250*time.Millisecond {
		t.Fatalf("expected 1.25s first value, got %s", d)
	}
}

func TestStep(t *testing.T) {
	s := New(WithRand(func() float64 { return 0 }), WithStep(2.5), WithCeiling(100))
	want := []time.Duration{
		time.Second,
		3500 * time.Millisecond,
		6 * time.Second,
	}
	for i, w := range want {
		if d := s.Next(); d != w {
			t.Fatalf("call %d: expected %s, got %s", i, w, d)
		}
	}
}

func TestJitterRedrawnEveryCall(t *testing.T) {
	draws := []float64{0.1, 0.9, 0.5}
	i := 0
	s := New(WithRand(func() float64 {
		v := draws[i%len(draws)]
		i++
		return v
	}), WithCeiling(1)) // base pinned at 1

	want := []time.Duration{
		1100 * time.Millisecond,
		1900 * time.Millisecond,
		1500 * time.Millisecond,
	}
	for n, w := range want {
		if d := s.Next(); d != w {
			t.Fatalf("call %d: expected %s, got %s", n, w, d)
		}
	}
}
