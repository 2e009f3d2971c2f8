package matching

import (
	"math"
	"testing"
)

func TestHaversineMeters(t *testing.T) {
	// Same point.
	if d := HaversineMeters(51.5074, -0.1278, 51.5074, -0.1278); d != 0 {
		t.Errorf("zero distance = %v", d)
	}

	// One street apart in London (~12-13 m).
	d := HaversineMeters(51.5074, -0.1278, 51.5075, -0.1279)
	if d < 10 || d > 15 {
		t.Errorf("London block distance = %v m, want ~12", d)
	}

	// London to Paris, ~344 km.
	d = HaversineMeters(51.5074, -0.1278, 48.8566, 2.3522)
	if d < 330_000 || d > 350_000 {
		t.Errorf("London-Paris = %v m, want ~344 km", d)
	}
}

func TestDistanceBandsScore(t *testing.T) {
	b := DefaultConfig().Bands

	cases := []struct {
		meters, want float64
	}{
		{0, 1.0},
		{50, 1.0},
		{51, 0.95},
		{100, 0.95},
		{150, 0.85},
		{200, 0.85},
		{350, 0.70},
		{500, 0.70},
	}
	for _, c := range cases {
		if got := b.Score(c.meters); got != c.want {
			t.Errorf("Score(%v) = %v, want %v", c.meters, got, c.want)
		}
	}

	// Exponential tail decays from 0.70 toward zero.
	if got := b.Score(501); got >= 0.70 || got <= 0 {
		t.Errorf("Score(501) = %v, want just below 0.70", got)
	}
	if b.Score(1500) >= b.Score(501) {
		t.Error("tail is not decreasing")
	}
	if got := b.Score(math.Inf(1)); got != 0 {
		t.Errorf("Score(+Inf) = %v, want 0", got)
	}
}

func TestDistanceScoreMonotonic(t *testing.T) {
	b := DefaultConfig().Bands
	prev := math.Inf(1)
	for d := 0.0; d <= 5000; d += 10 {
		s := b.Score(d)
		if s > prev {
			t.Fatalf("score increased at %v m: %v > %v", d, s, prev)
		}
		if s < 0 || s > 1 {
			t.Fatalf("score %v out of [0,1] at %v m", s, d)
		}
		prev = s
	}
}
