package seed

import (
	"math"
	"strings"
	"testing"
)

func TestNoiseDeterministic(t *testing.T) {
	a := Noise(42, []byte("hub"))
	b := Noise(42, []byte("hub"))
	if a != b {
		t.Errorf("Noise not deterministic: %v vs %v", a, b)
	}
	if a < 0 || a >= 1 {
		t.Errorf("Noise = %v, want [0,1)", a)
	}
	if Noise(43, []byte("hub")) == a {
		t.Error("different seeds gave the same noise")
	}
	if Noise(42, []byte("cap")) == a {
		t.Error("different keys gave the same noise")
	}
}

func TestNoiseSpread(t *testing.T) {
	var sum float64
	const n = 2000
	for i := 0; i < n; i++ {
		sum += Noise(7, []byte{byte(i), byte(i >> 8)})
	}
	mean := sum / n
	if math.Abs(mean-0.5) > 0.05 {
		t.Errorf("mean noise = %v, want about 0.5", mean)
	}
}

func TestProfileScorer(t *testing.T) {
	s := ProfileScorer{Profile: Profile{
		Targets:       map[string]float64{"crew": 10, "power": 0},
		SurplusWeight: 0.5,
	}}

	tests := []struct {
		name   string
		totals Totals
		want   float64
	}{
		{"empty", Totals{}, 100},
		{"met", Totals{"crew": 10}, 0},
		{"short", Totals{"crew": 7}, 9},
		{"surplus", Totals{"crew": 12}, 2},
		{"power deficit", Totals{"crew": 10, "power": -4}, 16},
		{"power surplus", Totals{"crew": 10, "power": 2}, 2},
		{"untracked ignored", Totals{"crew": 10, "comms": 99}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.ErrorAgainstSeed(tc.totals); got != tc.want {
				t.Errorf("ErrorAgainstSeed(%v) = %v, want %v", tc.totals, got, tc.want)
			}
		})
	}
}

func TestErrorBreakdown(t *testing.T) {
	s := ProfileScorer{Profile: Profile{Targets: map[string]float64{"crew": 4, "power": 1}}}
	total, lines := s.ErrorBreakdown(Totals{"crew": 2})
	if total != s.ErrorAgainstSeed(Totals{"crew": 2}) {
		t.Errorf("breakdown total %v differs from ErrorAgainstSeed", total)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "crew:") || !strings.HasPrefix(lines[1], "power:") {
		t.Errorf("lines not sorted by resource: %v", lines)
	}
}

func TestTotalsAdd(t *testing.T) {
	tot := Totals{}
	tot.Add(map[string]float64{"crew": 4, "power": -2}, 1)
	tot.Add(map[string]float64{"power": -1}, 1)
	if tot["crew"] != 4 || tot["power"] != -3 {
		t.Errorf("totals = %v", tot)
	}
	tot.Add(map[string]float64{"crew": 4, "power": -2}, -1)
	tot.Add(map[string]float64{"power": -1}, -1)
	if len(tot) != 0 {
		t.Errorf("totals after removal = %v, want empty", tot)
	}
}
