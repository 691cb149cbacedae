// Package mount computes how two sockets can be joined: the set of discrete
// transforms that bring their anchor blocks face to face.
package mount

import (
	"slices"
	"sync"

	"github.com/lawnchairsociety/stationgen/internal/cache"
	"github.com/lawnchairsociety/stationgen/internal/catalog"
	"github.com/lawnchairsociety/stationgen/internal/geom"
	"github.com/lawnchairsociety/stationgen/internal/logger"
	"github.com/samber/lo"
)

// Approximate size of one cached pair result.
const entryBytes = 256

// Config tunes a Matcher.
type Config struct {
	// CacheBytes is the memory budget for memoized pair results.
	CacheBytes int
	// TerminalSocketLimit is the largest number of same-typed sockets a
	// part may expose and still be preferred as a terminal attachment.
	TerminalSocketLimit int
}

// DefaultConfig returns a 32MB pair cache and a terminal limit of two.
func DefaultConfig() Config {
	return Config{
		CacheBytes:          32 * 1024 * 1024,
		TerminalSocketLimit: 2,
	}
}

type pairKey struct {
	mine, other catalog.SocketID
}

// Attachment is a part placed so that one of its sockets closes another.
// Transform maps the attached part's frame into the frame of the socket
// being closed.
type Attachment struct {
	Part      *catalog.Part
	Socket    *catalog.Socket
	Transform geom.Transform
}

// Found reports whether the attachment names a part.
func (a Attachment) Found() bool {
	return a.Part != nil
}

// Matcher answers socket matching queries against one catalog. It is safe
// for concurrent use.
type Matcher struct {
	catalog *catalog.Catalog
	cfg     Config
	pairs   *cache.Cache[pairKey, []geom.Transform]

	mu        sync.Mutex
	terminals map[catalog.SocketID]Attachment
	filter    catalog.PartFilter
}

// NewMatcher creates a matcher for c.
func NewMatcher(c *catalog.Catalog, cfg Config) *Matcher {
	if cfg.CacheBytes <= 0 {
		cfg.CacheBytes = DefaultConfig().CacheBytes
	}
	if cfg.TerminalSocketLimit <= 0 {
		cfg.TerminalSocketLimit = DefaultConfig().TerminalSocketLimit
	}
	return &Matcher{
		catalog:   c,
		cfg:       cfg,
		pairs:     cache.New[pairKey, []geom.Transform](cfg.CacheBytes / entryBytes),
		terminals: make(map[catalog.SocketID]Attachment),
	}
}

// Catalog returns the catalog the matcher was built for.
func (m *Matcher) Catalog() *catalog.Catalog {
	return m.catalog
}

// CachedPairs returns the number of memoized socket pairs.
func (m *Matcher) CachedPairs() int {
	return m.pairs.Len()
}

// Transforms returns every transform that maps other's part frame into
// mine's part frame with the two sockets joined. The result is nil when the
// sockets cannot be joined. The returned slice must not be modified.
func (m *Matcher) Transforms(mine, other *catalog.Socket) []geom.Transform {
	if mine.ID == other.ID {
		return m.pairs.GetOrCreate(pairKey{mine: mine.ID, other: other.ID}, m.compute)
	}
	if reverse, ok := m.pairs.TryGet(pairKey{mine: other.ID, other: mine.ID}); ok {
		if reverse == nil {
			return nil
		}
		return lo.Map(reverse, func(t geom.Transform, _ int) geom.Transform { return t.Invert() })
	}
	return m.pairs.GetOrCreate(pairKey{mine: mine.ID, other: other.ID}, m.compute)
}

func (m *Matcher) compute(key pairKey) []geom.Transform {
	return Match(m.catalog.Socket(key.mine), m.catalog.Socket(key.other))
}

// Match computes the joining transforms of two sockets without caching.
func Match(mine, other *catalog.Socket) []geom.Transform {
	if len(mine.Blocks) == 0 || len(other.Blocks) == 0 {
		return nil
	}
	switch catalog.Stricter(mine.Rule, other.Rule) {
	case catalog.RuleExcludeSamePartKind:
		if mine.Part == other.Part {
			return nil
		}
	case catalog.RuleExcludeSameInstance:
		if mine.ID == other.ID {
			return nil
		}
	}
	// Every piece kind must pair with the same kind on the other side.
	if !slices.Equal(mine.Pieces(), other.Pieces()) {
		return nil
	}

	var result []geom.Transform
	for i, piece := range mine.Pieces() {
		possible := multiMatches(mine.BlocksOf(piece), other.BlocksOf(piece))
		if i == 0 {
			result = possible
		} else {
			keep := lo.SliceToMap(possible, func(t geom.Transform) (geom.Transform, struct{}) { return t, struct{}{} })
			result = lo.Filter(result, func(t geom.Transform, _ int) bool {
				_, ok := keep[t]
				return ok
			})
		}
		if len(result) == 0 {
			return nil
		}
	}
	return result
}

// blockTransforms returns the four transforms that put other's anchor on
// mine's mount location with the blocks facing each other.
func blockTransforms(mine, other catalog.AnchorBlock) []geom.Transform {
	rots := geom.RotationsMapping(other.Direction, mine.Direction.Opposite())
	out := make([]geom.Transform, 0, len(rots))
	for _, r := range rots {
		out = append(out, geom.NewTransform(r, mine.MountLocation().Sub(r.Apply(other.Anchor))))
	}
	return out
}

// multiMatches aligns two groups of same-kind blocks. The smaller group's
// first block is tried against every block of the larger group, then each
// candidate is kept only if the rest of the smaller group lands on anchors
// of the larger group.
func multiMatches(mine, other []catalog.AnchorBlock) []geom.Transform {
	seen := make(map[geom.Transform]struct{})
	var candidates []geom.Transform
	add := func(ts []geom.Transform) {
		for _, t := range ts {
			if _, dup := seen[t]; !dup {
				seen[t] = struct{}{}
				candidates = append(candidates, t)
			}
		}
	}

	if len(mine) <= len(other) {
		for _, ot := range other {
			add(blockTransforms(mine[0], ot))
		}
		anchors := anchorSet(other)
		return lo.Filter(candidates, func(t geom.Transform, _ int) bool {
			inv := t.Invert()
			for _, b := range mine[1:] {
				if _, ok := anchors[inv.Apply(b.MountLocation())]; !ok {
					return false
				}
			}
			return true
		})
	}

	for _, mi := range mine {
		add(blockTransforms(mi, other[0]))
	}
	anchors := anchorSet(mine)
	return lo.Filter(candidates, func(t geom.Transform, _ int) bool {
		for _, b := range other[1:] {
			if _, ok := anchors[t.Apply(b.MountLocation())]; !ok {
				return false
			}
		}
		return true
	})
}

func anchorSet(blocks []catalog.AnchorBlock) map[geom.Vec3]struct{} {
	return lo.SliceToMap(blocks, func(b catalog.AnchorBlock) (geom.Vec3, struct{}) { return b.Anchor, struct{}{} })
}

// SmallestTerminalAttachment returns the cheapest known way to close s: the
// smallest part exposing at most TerminalSocketLimit sockets of s's type
// that can join it, or failing that the smallest part of any kind that can.
// The answer is memoized per socket until Invalidate is called.
func (m *Matcher) SmallestTerminalAttachment(s *catalog.Socket) Attachment {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.terminals[s.ID]; ok {
		return a
	}
	a := m.computeTerminal(s)
	m.terminals[s.ID] = a
	return a
}

// SetPartFilter restricts terminal attachments to the parts f accepts and
// invalidates every memoized answer. A nil filter accepts all parts.
func (m *Matcher) SetPartFilter(f catalog.PartFilter) {
	m.mu.Lock()
	m.filter = f
	ids := make([]catalog.SocketID, 0, len(m.terminals))
	for id := range m.terminals {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Invalidate(m.catalog.Socket(id))
	}
}

// Invalidate drops the memoized terminal attachment for s.
func (m *Matcher) Invalidate(s *catalog.Socket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.terminals, s.ID)
}

func (m *Matcher) computeTerminal(s *catalog.Socket) Attachment {
	owner := m.catalog.Part(s.Part)
	first := func(limit int) (Attachment, bool) {
		for _, p := range m.catalog.SortedBySize() {
			if !m.filter.Accepts(p) {
				continue
			}
			candidates := p.SocketsOfType(s.Type)
			if limit > 0 && len(candidates) > limit {
				continue
			}
			for _, o := range candidates {
				if ts := m.Transforms(s, o); len(ts) > 0 {
					return Attachment{Part: p, Socket: o, Transform: ts[0]}, true
				}
			}
		}
		return Attachment{}, false
	}

	if a, ok := first(m.cfg.TerminalSocketLimit); ok {
		return a
	}
	if a, ok := first(0); ok {
		logger.Warning("No terminal part attaches to socket; using a larger part",
			"part", owner.Name, "socket", s.Key(), "fallback", a.Part.Name)
		return a
	}
	logger.Warning("No part attaches to socket", "part", owner.Name, "socket", s.Key())
	return Attachment{}
}
