// Package seed describes what a construction is trying to become: a
// requirement profile of resource targets, a scorer measuring how far the
// placed rooms are from it, and the deterministic noise source derived from
// the construction seed.
package seed

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Totals maps a resource name to the summed amount over all placed rooms.
type Totals map[string]float64

// Add accumulates a part's resources, scaled by sign (+1 to add a room,
// -1 to remove it).
func (t Totals) Add(resources map[string]float64, sign float64) {
	for k, v := range resources {
		t[k] += sign * v
		if t[k] == 0 {
			delete(t, k)
		}
	}
}

// Clone returns a copy of t.
func (t Totals) Clone() Totals {
	out := make(Totals, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Scorer measures how far a set of resource totals is from the target.
// Implementations must be pure: the same totals always give the same error.
type Scorer interface {
	// ErrorAgainstSeed returns a non-negative error; zero means the
	// requirement profile is satisfied.
	ErrorAgainstSeed(totals Totals) float64
	// ErrorBreakdown returns the same error plus one human readable line
	// per contributing term.
	ErrorBreakdown(totals Totals) (float64, []string)
}

// Profile is a set of resource targets.
type Profile struct {
	Targets map[string]float64 `yaml:"targets"`
	// SurplusWeight scales the penalty for exceeding a target. Zero means
	// surplus is free.
	SurplusWeight float64 `yaml:"surplus_weight"`
}

// ProfileScorer is the default Scorer: the sum over targets of the squared
// shortfall, plus the weighted squared surplus.
type ProfileScorer struct {
	Profile Profile
}

var _ Scorer = ProfileScorer{}

func (s ProfileScorer) term(name string, totals Totals) float64 {
	diff := s.Profile.Targets[name] - totals[name]
	if diff >= 0 {
		return diff * diff
	}
	return diff * diff * s.Profile.SurplusWeight
}

func (s ProfileScorer) names() []string {
	names := make([]string, 0, len(s.Profile.Targets))
	for k := range s.Profile.Targets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ErrorAgainstSeed implements Scorer.
func (s ProfileScorer) ErrorAgainstSeed(totals Totals) float64 {
	var sum float64
	for _, name := range s.names() {
		sum += s.term(name, totals)
	}
	return sum
}

// ErrorBreakdown implements Scorer.
func (s ProfileScorer) ErrorBreakdown(totals Totals) (float64, []string) {
	var sum float64
	var lines []string
	for _, name := range s.names() {
		e := s.term(name, totals)
		sum += e
		lines = append(lines, fmt.Sprintf("%s: have %g want %g error %.4g",
			name, totals[name], s.Profile.Targets[name], e))
	}
	return sum, lines
}

// Seed identifies one generation run. Identical seeds and catalogs grow
// identical constructions.
type Seed struct {
	Value   int64   `yaml:"value"`
	Profile Profile `yaml:"profile"`
}

// Scorer returns the default scorer for the seed's profile.
func (s Seed) Scorer() Scorer {
	return ProfileScorer{Profile: s.Profile}
}

// Noise returns a value in [0,1) determined by the seed value and key.
func (s Seed) Noise(key []byte) float64 {
	return Noise(s.Value, key)
}

// Noise hashes key under a seed-derived blake2b key and maps the first
// 53 bits of the digest to [0,1).
func Noise(seed int64, key []byte) float64 {
	var k [8]byte
	binary.LittleEndian.PutUint64(k[:], uint64(seed))
	h, err := blake2b.New256(k[:])
	if err != nil {
		// Only returned for keys longer than 64 bytes.
		panic(err)
	}
	h.Write(key)
	sum := h.Sum(nil)
	return float64(binary.LittleEndian.Uint64(sum[:8])>>11) / float64(uint64(1)<<53)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
