package generator

import (
	"math"

	"github.com/lawnchairsociety/stationgen/internal/construction"
)

// scorePass holds the values fixed for one scoring pass.
type scorePass struct {
	targetGrowth float64
	freeMounts   int
	entryError   float64
}

// score rates a candidate while it is provisionally part of the
// construction. Higher is better.
func (g *Generator) score(r *construction.Room, pass scorePass) float64 {
	random := g.opts.RandomWeight * g.construction.Seed.Noise(noiseKey(r))

	count := 0
	for _, mp := range r.MountPoints() {
		if mp.AttachedTo() != nil {
			count--
		} else {
			count++
		}
	}
	growth := growthScore(count, pass.targetGrowth, pass.freeMounts, g.opts.GrowthPenalty)

	roomError, ok := g.errorByPart[r.Part().ID]
	if !ok {
		roomError = g.construction.ComputeErrorAgainstSeed() - pass.entryError
		g.errorByPart[r.Part().ID] = roomError
	}
	return random + growth - g.opts.RequirementWeight*roomError
}

// growthScore penalizes the distance between the change in open mount
// points a candidate causes (count) and the requested target. free is the
// number of open mount points some candidate could close.
func growthScore(count int, target float64, free int, penalty float64) float64 {
	var s float64
	c := float64(count)
	if target < 0 && count > 0 {
		s -= penalty
	}
	if float64(free)+c <= 0 && target >= 0 {
		s -= penalty
	}
	e := c - target
	if count <= 0 {
		s -= e * e * 10 / math.Sqrt(1+float64(free))
	} else {
		s -= e * e * math.Sqrt(1+float64(free))
	}
	return s
}

func noiseKey(r *construction.Room) []byte {
	key := []byte(r.Part().Name)
	return append(key, r.Transform().Bytes()...)
}
