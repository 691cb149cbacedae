// Package construction holds the mutable graph of placed rooms: identity
// issuance, socket attachment, collision queries and the seed error oracle.
package construction

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/google/uuid"
	"github.com/lawnchairsociety/stationgen/internal/catalog"
	"github.com/lawnchairsociety/stationgen/internal/geom"
	"github.com/lawnchairsociety/stationgen/internal/seed"
	"github.com/zyedidia/generic/mapset"
)

var (
	ErrDuplicateRoomID = errors.New("construction: room id already used")
	ErrRoomOwned       = errors.New("construction: room already belongs to a construction")
	ErrNotMember       = errors.New("construction: room does not belong to this construction")
)

// Construction is a growing graph of rooms. It is not safe for concurrent
// mutation.
type Construction struct {
	ID   uuid.UUID
	Seed seed.Seed

	catalog *catalog.Catalog
	scorer  seed.Scorer

	rooms map[int]*Room
	maxID int

	cells   map[geom.Vec3]*Room
	spatial *rtreego.Rtree

	open        mapset.Set[*MountPoint]
	openAnchors map[geom.Vec3][]*MountPoint

	totals seed.Totals
}

// New creates an empty construction over cat, scored with the seed's
// default profile scorer.
func New(cat *catalog.Catalog, s seed.Seed) *Construction {
	return &Construction{
		ID:          uuid.New(),
		Seed:        s,
		catalog:     cat,
		scorer:      s.Scorer(),
		rooms:       make(map[int]*Room),
		cells:       make(map[geom.Vec3]*Room),
		spatial:     rtreego.NewTree(3, 25, 50),
		open:        mapset.New[*MountPoint](),
		openAnchors: make(map[geom.Vec3][]*MountPoint),
		totals:      seed.Totals{},
	}
}

// Catalog returns the catalog rooms are drawn from.
func (c *Construction) Catalog() *catalog.Catalog {
	return c.catalog
}

// SetScorer replaces the seed error oracle. A nil scorer scores every state
// as zero error.
func (c *Construction) SetScorer(s seed.Scorer) {
	c.scorer = s
}

// MaxID returns the largest identity issued so far.
func (c *Construction) MaxID() int {
	return c.maxID
}

// RoomCount returns the number of placed rooms.
func (c *Construction) RoomCount() int {
	return len(c.rooms)
}

// Room looks up a room by identity.
func (c *Construction) Room(id int) (*Room, bool) {
	r, ok := c.rooms[id]
	return r, ok
}

// Rooms returns the placed rooms ordered by identity.
func (c *Construction) Rooms() []*Room {
	out := make([]*Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// AddRoom places r. An unassigned room receives the next identity; an
// explicit identity already in use fails with ErrDuplicateRoomID. Every
// mount point of r that fits an open mount point of another room is
// attached to it, on both sides.
func (c *Construction) AddRoom(r *Room) error {
	if r.owner != nil {
		return ErrRoomOwned
	}
	if r.id == UnassignedID {
		r.id = c.maxID + 1
	} else if _, dup := c.rooms[r.id]; dup {
		return fmt.Errorf("%w: %d", ErrDuplicateRoomID, r.id)
	}
	c.maxID = max(c.maxID, r.id)

	r.owner = c
	c.rooms[r.id] = r
	for _, cell := range r.cells {
		if _, taken := c.cells[cell]; !taken {
			c.cells[cell] = r
		}
	}
	c.spatial.Insert(r)
	c.totals.Add(r.part.Resources, 1)

	for _, m := range r.mounts {
		if other := m.AttachedToIn(c); other != nil {
			c.closeMount(other)
			m.attachedTo = other
			other.attachedTo = m
		}
	}
	for _, m := range r.mounts {
		if m.attachedTo == nil {
			c.openMount(m)
		}
	}
	return nil
}

// RemoveRoom takes r out of the graph. Mount points that were attached to
// r become open again.
func (c *Construction) RemoveRoom(r *Room) error {
	if r.owner != c {
		return ErrNotMember
	}
	for _, m := range r.mounts {
		if p := m.attachedTo; p != nil {
			m.attachedTo = nil
			p.attachedTo = nil
			c.openMount(p)
		} else {
			c.closeMount(m)
		}
	}
	for _, cell := range r.cells {
		if c.cells[cell] == r {
			delete(c.cells, cell)
		}
	}
	c.spatial.Delete(r)
	c.totals.Add(r.part.Resources, -1)
	delete(c.rooms, r.id)
	r.owner = nil
	return nil
}

// RegisterRoomTransactionally adds r, runs fn, and removes r again on
// every exit path, including a panic in fn. A room that arrived without an
// identity leaves without one, and the issued identity is not consumed.
// Resource totals are restored to their exact prior values.
func (c *Construction) RegisterRoomTransactionally(r *Room, fn func(*Room) error) (err error) {
	prevID, prevMax := r.id, c.maxID
	prevTotals := c.saveTotals(r.part.Resources)
	if err := c.AddRoom(r); err != nil {
		return err
	}
	defer func() {
		if rerr := c.RemoveRoom(r); rerr != nil && err == nil {
			err = rerr
		}
		r.id = prevID
		c.maxID = prevMax
		c.restoreTotals(prevTotals)
	}()
	return fn(r)
}

// totalEntry is a saved resource total; present is false when the resource
// had no entry.
type totalEntry struct {
	value   float64
	present bool
}

func (c *Construction) saveTotals(resources map[string]float64) map[string]totalEntry {
	saved := make(map[string]totalEntry, len(resources))
	for k := range resources {
		v, ok := c.totals[k]
		saved[k] = totalEntry{value: v, present: ok}
	}
	return saved
}

func (c *Construction) restoreTotals(saved map[string]totalEntry) {
	for k, e := range saved {
		if e.present {
			c.totals[k] = e.value
		} else {
			delete(c.totals, k)
		}
	}
}

func (c *Construction) openMount(m *MountPoint) {
	if c.open.Has(m) {
		return
	}
	c.open.Put(m)
	for _, a := range m.AnchorLocations() {
		c.openAnchors[a] = append(c.openAnchors[a], m)
	}
}

func (c *Construction) closeMount(m *MountPoint) {
	if !c.open.Has(m) {
		return
	}
	c.open.Remove(m)
	for _, a := range m.AnchorLocations() {
		list := c.openAnchors[a]
		for i, x := range list {
			if x == m {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(c.openAnchors, a)
		} else {
			c.openAnchors[a] = list
		}
	}
}

// OpenMountCount returns the number of unattached mount points.
func (c *Construction) OpenMountCount() int {
	return c.open.Size()
}

// OpenMountPoints returns the unattached mount points ordered by room
// identity and socket order.
func (c *Construction) OpenMountPoints() []*MountPoint {
	var out []*MountPoint
	for _, r := range c.Rooms() {
		for _, m := range r.mounts {
			if c.open.Has(m) {
				out = append(out, m)
			}
		}
	}
	return out
}

// EachOpenMount calls fn for every unattached mount point in no particular
// order until fn returns false.
func (c *Construction) EachOpenMount(fn func(*MountPoint) bool) {
	done := false
	c.open.Each(func(m *MountPoint) {
		if !done && !fn(m) {
			done = true
		}
	})
}

// CubeExists reports whether any placed room occupies the world cell.
func (c *Construction) CubeExists(world geom.Vec3) bool {
	_, ok := c.cells[world]
	return ok
}

// RoomAt returns the room occupying the world cell, if any.
func (c *Construction) RoomAt(world geom.Vec3) (*Room, bool) {
	r, ok := c.cells[world]
	return r, ok
}

// Intersects reports whether r would collide with any placed room other
// than itself. Occupied cells never overlap. A reserved region may not hold
// another room's cells, and two reserved regions may only overlap when both
// are shared. Optional regions take part only when includeOptional is set.
func (c *Construction) Intersects(r *Room, includeOptional bool) bool {
	for _, cell := range r.cells {
		if owner, ok := c.cells[cell]; ok && owner != r {
			return true
		}
	}
	for _, s := range c.spatial.SearchIntersect(r.rect) {
		other := s.(*Room)
		if other == r {
			continue
		}
		if reservedCollide(r, other, includeOptional) {
			return true
		}
	}
	return false
}

func reservedCollide(a, b *Room, includeOptional bool) bool {
	for _, ra := range a.reserved {
		if ra.optional && !includeOptional {
			continue
		}
		if regionHoldsCells(ra.box, b) {
			return true
		}
		for _, rb := range b.reserved {
			if rb.optional && !includeOptional {
				continue
			}
			if ra.shared && rb.shared {
				continue
			}
			if ra.box.Intersects(rb.box) {
				return true
			}
		}
	}
	for _, rb := range b.reserved {
		if rb.optional && !includeOptional {
			continue
		}
		if regionHoldsCells(rb.box, a) {
			return true
		}
	}
	return false
}

func regionHoldsCells(region geom.Box, r *Room) bool {
	if !region.Intersects(r.box) {
		return false
	}
	for _, cell := range r.cells {
		if region.Contains(cell) {
			return true
		}
	}
	return false
}

// Totals returns a copy of the summed part resources of all rooms.
func (c *Construction) Totals() seed.Totals {
	return c.totals.Clone()
}

// ComputeErrorAgainstSeed returns how far the placed rooms are from the
// seed's requirement profile. Zero means satisfied.
func (c *Construction) ComputeErrorAgainstSeed() float64 {
	if c.scorer == nil {
		return 0
	}
	return c.scorer.ErrorAgainstSeed(c.totals)
}

// ComputeErrorAgainstSeedDetailed is ComputeErrorAgainstSeed plus a per-term
// breakdown.
func (c *Construction) ComputeErrorAgainstSeedDetailed() (float64, []string) {
	if c.scorer == nil {
		return 0, nil
	}
	return c.scorer.ErrorBreakdown(c.totals)
}

// Bounds returns the box enclosing every placed room's footprint. ok is
// false for an empty construction.
func (c *Construction) Bounds() (box geom.Box, ok bool) {
	for _, r := range c.rooms {
		if !ok {
			box, ok = r.box, true
			continue
		}
		box = box.Union(r.box)
	}
	return box, ok
}
