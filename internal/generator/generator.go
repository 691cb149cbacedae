// Package generator grows a construction one room at a time. Each step
// expands the open mount points into candidate placements, rejects the ones
// that collide, scores the rest and commits the winner.
package generator

import (
	"errors"
	"math/rand"

	"github.com/lawnchairsociety/stationgen/internal/catalog"
	"github.com/lawnchairsociety/stationgen/internal/choice"
	"github.com/lawnchairsociety/stationgen/internal/construction"
	"github.com/lawnchairsociety/stationgen/internal/geom"
	"github.com/lawnchairsociety/stationgen/internal/logger"
	"github.com/lawnchairsociety/stationgen/internal/mount"
	"github.com/lawnchairsociety/stationgen/internal/seed"
	"github.com/samber/lo"
	"github.com/zyedidia/generic/mapset"
)

var (
	ErrCatalogMismatch = errors.New("generator: matcher and construction use different catalogs")
	ErrInvalidQuantile = errors.New("generator: quantile must be in (0,1)")
)

// Options tunes scoring and selection.
type Options struct {
	// Filter restricts the parts that may be proposed. Nil accepts all.
	Filter    catalog.PartFilter
	Selection Selection
	// Quantile is used by SelectQuantile.
	Quantile float64

	RandomWeight      float64
	GrowthPenalty     float64
	RequirementWeight float64
}

// DefaultOptions returns choose-best selection with the standard weights.
func DefaultOptions() Options {
	return Options{
		Selection:         SelectBest,
		Quantile:          0.9,
		RandomWeight:      100,
		GrowthPenalty:     1e10,
		RequirementWeight: 1,
	}
}

type roomKey struct {
	transform geom.Transform
	part      catalog.PartID
}

// roomMeta is a candidate placement not yet committed.
type roomMeta struct {
	key        roomKey
	room       *construction.Room
	inFactor   int
	nonce      int
	collisions collisionFlag
	removed    bool
}

// Stats counts generator activity since creation.
type Stats struct {
	Passes     int
	Commits    int
	Stalls     int
	Registered int
	Rejected   int
}

// Generator incrementally grows one construction. It is not safe for
// concurrent use.
type Generator struct {
	construction *construction.Construction
	matcher      *mount.Matcher
	opts         Options
	rng          *rand.Rand

	state State
	nonce int

	// FIFO of mount points not yet expanded into candidates.
	openMounts []*construction.MountPoint
	// Candidates that would attach to each open mount point.
	possibleRooms map[*construction.MountPoint]mapset.Set[*roomMeta]
	openRooms     map[roomKey]*roomMeta
	// Registration order of openRooms, compacted lazily.
	registry []*roomMeta

	errorByPart map[catalog.PartID]float64
	choice      choice.WeightedChoice[*roomMeta]
	stats       Stats

	// OnCommit, when set, is called with every committed room.
	OnCommit func(*construction.Room)
}

// New creates a generator for c. Every mount point already open in c is
// queued for expansion. The random source is seeded from the construction
// seed.
func New(c *construction.Construction, m *mount.Matcher, opts Options) (*Generator, error) {
	if m.Catalog() != c.Catalog() {
		return nil, ErrCatalogMismatch
	}
	if opts.Selection == SelectQuantile && (opts.Quantile <= 0 || opts.Quantile >= 1) {
		return nil, ErrInvalidQuantile
	}
	g := &Generator{
		construction:  c,
		matcher:       m,
		opts:          opts,
		rng:           rand.New(rand.NewSource(c.Seed.Value)),
		possibleRooms: make(map[*construction.MountPoint]mapset.Set[*roomMeta]),
		openRooms:     make(map[roomKey]*roomMeta),
		errorByPart:   make(map[catalog.PartID]float64),
	}
	m.SetPartFilter(opts.Filter)
	g.openMounts = append(g.openMounts, c.OpenMountPoints()...)
	return g, nil
}

// NeverClosable returns the open mount points that no part the generator
// may propose can attach to.
func (g *Generator) NeverClosable() []*construction.MountPoint {
	return lo.Filter(g.construction.OpenMountPoints(), func(m *construction.MountPoint, _ int) bool {
		return !g.matcher.SmallestTerminalAttachment(m.Socket()).Found()
	})
}

// Construction returns the construction being grown.
func (g *Generator) Construction() *construction.Construction {
	return g.construction
}

// State returns the stage the generator last reached.
func (g *Generator) State() State {
	return g.state
}

// Stats returns activity counters.
func (g *Generator) Stats() Stats {
	return g.stats
}

// CandidateCount returns the number of live candidate placements.
func (g *Generator) CandidateCount() int {
	return len(g.openRooms)
}

// StepGeneration runs one growth step. targetGrowth is the desired change in
// open mount points per step; testOptional makes optional reserved space
// count for collisions. It returns false when no candidate could be placed.
func (g *Generator) StepGeneration(targetGrowth float64, testOptional bool) bool {
	g.nonce++
	g.stats.Passes++

	g.state = StateExpandingFrontier
	g.processOpenMountPoints()

	g.state = StateScoringCandidates
	g.processOpenRooms(targetGrowth, testOptional)
	logger.Tracef("Choose from %d valid options (%d candidates, %d open mounts)",
		g.choice.Count(), len(g.openRooms), g.construction.OpenMountCount())

	if g.choice.Count() == 0 {
		g.state = StateStalled
		g.stats.Stalls++
		logger.Info("Generation stalled", "rooms", g.construction.RoomCount(),
			"open_mounts", g.construction.OpenMountCount(), "target_growth", targetGrowth,
			"test_optional", testOptional)
		return false
	}

	g.state = StateCommitting
	if !g.appendRoom() {
		g.state = StateStalled
		g.stats.Stalls++
		return false
	}
	g.state = StateIdle
	return true
}

func (g *Generator) processOpenMountPoints() {
	parts := g.construction.Catalog().Filter(g.opts.Filter)
	for len(g.openMounts) > 0 {
		mp := g.openMounts[0]
		g.openMounts[0] = nil
		g.openMounts = g.openMounts[1:]
		if !mp.IsOpen() || mp.Owner().Owner() != g.construction {
			continue
		}
		owner := mp.Owner()
		for _, part := range parts {
			for _, other := range part.SocketsOfType(mp.Socket().Type) {
				for _, mat := range g.matcher.Transforms(mp.Socket(), other) {
					meta := g.registerKey(geom.Compose(mat, owner.Transform()), part)
					if meta.inFactor == 0 {
						logger.Warning("Candidate has zero in-factor",
							"part", part.Name, "socket", other.Key(),
							"parent", owner.String(), "parent_socket", mp.Socket().Key())
					}
				}
			}
		}
	}
}

// registerKey returns the candidate for (t, part), creating it if needed.
// The first registration in a pass recounts which open mount points the
// candidate would close.
func (g *Generator) registerKey(t geom.Transform, part *catalog.Part) *roomMeta {
	key := roomKey{transform: t, part: part.ID}
	meta, ok := g.openRooms[key]
	if !ok {
		meta = &roomMeta{key: key, room: construction.NewRoom(part, t)}
		g.openRooms[key] = meta
		g.registry = append(g.registry, meta)
		g.stats.Registered++
	} else if meta.nonce == g.nonce {
		return meta
	}
	meta.nonce = g.nonce
	meta.inFactor = 0
	for _, mp := range meta.room.MountPoints() {
		other := mp.AttachedToIn(g.construction)
		if other == nil {
			continue
		}
		meta.inFactor++
		set, ok := g.possibleRooms[other]
		if !ok {
			set = mapset.New[*roomMeta]()
			g.possibleRooms[other] = set
		}
		set.Put(meta)
	}
	return meta
}

func (g *Generator) processOpenRooms(targetGrowth float64, testOptional bool) {
	mask := collisionMask(testOptional)
	g.choice.Clear()
	clear(g.errorByPart)
	g.registry = lo.Filter(g.registry, func(m *roomMeta, _ int) bool { return !m.removed })

	pass := scorePass{
		targetGrowth: targetGrowth,
		freeMounts:   len(g.possibleRooms),
		entryError:   g.construction.ComputeErrorAgainstSeed(),
	}
	for _, meta := range g.registry {
		if meta.collisions&mask != 0 {
			continue
		}
		if g.collidesPredictive(meta.room, true, testOptional) {
			meta.collisions |= mask
			g.stats.Rejected++
			continue
		}
		var total float64
		err := g.construction.RegisterRoomTransactionally(meta.room, func(r *construction.Room) error {
			total = g.score(r, pass)
			return nil
		})
		if err != nil {
			logger.Warning("Failed to score candidate", "room", meta.room.String(), "error", err)
			continue
		}
		if !seed.IsFinite(total) {
			continue
		}
		g.choice.Add(meta, total)
	}
}

func (g *Generator) appendRoom() bool {
	var meta *roomMeta
	var ok bool
	if g.opts.Selection == SelectQuantile {
		meta, ok = g.choice.ChooseByQuantile(g.rng.Float64(), g.opts.Quantile)
	} else {
		meta, ok = g.choice.ChooseBest()
	}
	if !ok {
		return false
	}

	before := g.construction.ComputeErrorAgainstSeed()
	if err := g.commitRoom(meta); err != nil {
		logger.Error("Failed to commit room", "room", meta.room.String(), "error", err)
		return false
	}
	g.stats.Commits++
	room := meta.room
	x, y, z := room.BoundingBox().Center()
	logger.Debug("Added room", "part", room.Part().Name, "id", room.ID(),
		"rooms", g.construction.RoomCount(), "center", []float64{x, y, z},
		"error_before", before, "error_after", g.construction.ComputeErrorAgainstSeed())
	if g.OnCommit != nil {
		g.OnCommit(room)
	}
	return true
}

func (g *Generator) commitRoom(meta *roomMeta) error {
	room := meta.room
	if err := g.construction.AddRoom(room); err != nil {
		return err
	}
	for _, mp := range room.MountPoints() {
		attach := mp.AttachedTo()
		if attach == nil {
			g.openMounts = append(g.openMounts, mp)
			continue
		}
		set, ok := g.possibleRooms[attach]
		if !ok {
			continue
		}
		set.Each(func(other *roomMeta) {
			other.inFactor--
			if other.inFactor <= 0 {
				g.dropMeta(other)
			}
		})
		delete(g.possibleRooms, attach)
	}
	g.dropMeta(meta)
	return nil
}

func (g *Generator) dropMeta(m *roomMeta) {
	if m.removed {
		return
	}
	m.removed = true
	if g.openRooms[m.key] == m {
		delete(g.openRooms, m.key)
	}
}
