package construction

import (
	"fmt"

	"github.com/dhconnelly/rtreego"
	"github.com/lawnchairsociety/stationgen/internal/catalog"
	"github.com/lawnchairsociety/stationgen/internal/geom"
)

// UnassignedID marks a room that has not been given an identity yet.
const UnassignedID = -1

// Room is one placed instance of a part.
type Room struct {
	owner     *Construction
	id        int
	part      *catalog.Part
	transform geom.Transform
	inverse   geom.Transform

	// Derived from part and transform by SetTransform.
	box      geom.Box
	bounds   geom.Box
	rect     rtreego.Rect
	cells    []geom.Vec3
	reserved []worldReserved
	anchors  map[geom.Vec3][]WorldBlock

	mounts []*MountPoint
}

type worldReserved struct {
	box      geom.Box
	shared   bool
	optional bool
}

// NewRoom creates an unowned room placing part at t.
func NewRoom(part *catalog.Part, t geom.Transform) *Room {
	r := &Room{id: UnassignedID, part: part}
	r.mounts = make([]*MountPoint, len(part.Sockets))
	for i, s := range part.Sockets {
		r.mounts[i] = &MountPoint{owner: r, socket: s}
	}
	r.setTransform(t)
	return r
}

// ID returns the room's identity, or UnassignedID.
func (r *Room) ID() int {
	return r.id
}

// SetID gives the room an explicit identity before it is added.
func (r *Room) SetID(id int) error {
	if r.owner != nil {
		return ErrRoomOwned
	}
	r.id = id
	return nil
}

// Owner returns the construction holding the room, or nil.
func (r *Room) Owner() *Construction {
	return r.owner
}

// Part returns the part the room instantiates.
func (r *Room) Part() *catalog.Part {
	return r.part
}

// Transform maps part-local cells to world cells.
func (r *Room) Transform() geom.Transform {
	return r.transform
}

// SetTransform moves the room. It fails while the room belongs to a
// construction.
func (r *Room) SetTransform(t geom.Transform) error {
	if r.owner != nil {
		return ErrRoomOwned
	}
	r.setTransform(t)
	return nil
}

func (r *Room) setTransform(t geom.Transform) {
	r.transform = t
	r.inverse = t.Invert()
	r.box = r.part.Box.Transform(t)
	r.bounds = r.box

	r.cells = make([]geom.Vec3, len(r.part.Cells))
	for i, c := range r.part.Cells {
		r.cells[i] = t.Apply(c)
	}

	r.reserved = make([]worldReserved, len(r.part.Reserved))
	for i, rs := range r.part.Reserved {
		wb := rs.Box.Transform(t)
		r.reserved[i] = worldReserved{box: wb, shared: rs.Shared, optional: rs.Optional}
		r.bounds = r.bounds.Union(wb)
	}

	r.anchors = make(map[geom.Vec3][]WorldBlock)
	for _, m := range r.mounts {
		for _, b := range m.Blocks() {
			r.anchors[b.Anchor] = append(r.anchors[b.Anchor], b)
		}
	}

	r.rect, _ = rtreego.NewRectFromPoints(
		rtreego.Point{float64(r.bounds.Min.X), float64(r.bounds.Min.Y), float64(r.bounds.Min.Z)},
		rtreego.Point{float64(r.bounds.Max.X + 1), float64(r.bounds.Max.Y + 1), float64(r.bounds.Max.Z + 1)},
	)
}

// Bounds implements rtreego.Spatial over the footprint and every reserved
// region.
func (r *Room) Bounds() rtreego.Rect {
	return r.rect
}

// BoundingBox is the footprint of the part under the room's transform.
func (r *Room) BoundingBox() geom.Box {
	return r.box
}

// Cells returns the world cells the room occupies.
func (r *Room) Cells() []geom.Vec3 {
	return r.cells
}

// CubeExists reports whether the room occupies the world cell.
func (r *Room) CubeExists(world geom.Vec3) bool {
	if !r.box.Contains(world) {
		return false
	}
	return r.part.Occupies(r.inverse.Apply(world))
}

// LocalToWorld maps a part-local cell to the world.
func (r *Room) LocalToWorld(local geom.Vec3) geom.Vec3 {
	return r.transform.Apply(local)
}

// WorldToLocal maps a world cell into the part's frame.
func (r *Room) WorldToLocal(world geom.Vec3) geom.Vec3 {
	return r.inverse.Apply(world)
}

// MountPoints returns one mount point per socket of the part, in socket
// order.
func (r *Room) MountPoints() []*MountPoint {
	return r.mounts
}

// MountPoint returns the mount point instantiating s.
func (r *Room) MountPoint(s *catalog.Socket) *MountPoint {
	for _, m := range r.mounts {
		if m.socket == s {
			return m
		}
	}
	return nil
}

// BlocksAnchoredAt returns the room's socket blocks whose anchor lies on
// the world cell.
func (r *Room) BlocksAnchoredAt(world geom.Vec3) []WorldBlock {
	return r.anchors[world]
}

// OpenMountCount counts the room's unattached mount points.
func (r *Room) OpenMountCount() int {
	n := 0
	for _, m := range r.mounts {
		if m.attachedTo == nil {
			n++
		}
	}
	return n
}

func (r *Room) String() string {
	return fmt.Sprintf("%s#%d@%v", r.part.Name, r.id, r.transform.Translation)
}
