package construction

import (
	"slices"

	"github.com/lawnchairsociety/stationgen/internal/catalog"
	"github.com/lawnchairsociety/stationgen/internal/geom"
)

// MountPoint is one socket of a placed room, possibly joined to a mount
// point of another room.
type MountPoint struct {
	owner      *Room
	socket     *catalog.Socket
	attachedTo *MountPoint
}

// WorldBlock is a socket block expressed in world coordinates.
type WorldBlock struct {
	Mount         *MountPoint
	Piece         string
	Direction     geom.Direction
	Anchor        geom.Vec3
	MountLocation geom.Vec3
}

// Owner returns the room the mount point belongs to.
func (m *MountPoint) Owner() *Room {
	return m.owner
}

// Socket returns the socket definition.
func (m *MountPoint) Socket() *catalog.Socket {
	return m.socket
}

// AttachedTo returns the joined mount point, or nil when open.
func (m *MountPoint) AttachedTo() *MountPoint {
	return m.attachedTo
}

// IsOpen reports whether the mount point is unattached.
func (m *MountPoint) IsOpen() bool {
	return m.attachedTo == nil
}

// Blocks returns the socket's blocks in world coordinates.
func (m *MountPoint) Blocks() []WorldBlock {
	t := m.owner.transform
	out := make([]WorldBlock, len(m.socket.Blocks))
	for i, b := range m.socket.Blocks {
		out[i] = WorldBlock{
			Mount:         m,
			Piece:         b.Piece,
			Direction:     t.ApplyDirection(b.Direction),
			Anchor:        t.Apply(b.Anchor),
			MountLocation: t.Apply(b.MountLocation()),
		}
	}
	return out
}

// MountLocations returns the world cells a partner's anchors must occupy.
func (m *MountPoint) MountLocations() []geom.Vec3 {
	out := make([]geom.Vec3, len(m.socket.Blocks))
	for i, b := range m.socket.Blocks {
		out[i] = m.owner.transform.Apply(b.MountLocation())
	}
	return out
}

// AnchorLocations returns the world cells of the socket's anchors.
func (m *MountPoint) AnchorLocations() []geom.Vec3 {
	out := make([]geom.Vec3, len(m.socket.Blocks))
	for i, b := range m.socket.Blocks {
		out[i] = m.owner.transform.Apply(b.Anchor)
	}
	return out
}

// AttachedToIn returns the open mount point of another room in c that this
// mount point would join if its room were placed, or nil.
func (m *MountPoint) AttachedToIn(c *Construction) *MountPoint {
	if len(m.socket.Blocks) == 0 {
		return nil
	}
	first := m.owner.transform.Apply(m.socket.Blocks[0].MountLocation())
	for _, cand := range c.openAnchors[first] {
		if cand.owner == m.owner {
			continue
		}
		if m.joins(cand) {
			return cand
		}
	}
	return nil
}

// joins reports whether m and o fit together block for block in their
// current world placement.
func (m *MountPoint) joins(o *MountPoint) bool {
	if m.socket.Type != o.socket.Type {
		return false
	}
	switch catalog.Stricter(m.socket.Rule, o.socket.Rule) {
	case catalog.RuleExcludeSamePartKind:
		if m.socket.Part == o.socket.Part {
			return false
		}
	case catalog.RuleExcludeSameInstance:
		if m.socket.ID == o.socket.ID {
			return false
		}
	}
	if !slices.Equal(m.socket.Pieces(), o.socket.Pieces()) {
		return false
	}
	mine, theirs := m.Blocks(), o.Blocks()
	return covers(mine, theirs) && covers(theirs, mine)
}

// covers reports whether every block in a has a block of the same piece in b
// anchored on its mount location.
func covers(a, b []WorldBlock) bool {
	for _, x := range a {
		found := false
		for _, y := range b {
			if y.Piece == x.Piece && y.Anchor == x.MountLocation {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// TypeEquals reports whether two world blocks belong to sockets of the same
// type and share a piece kind.
func (b WorldBlock) TypeEquals(o WorldBlock) bool {
	return b.Piece == o.Piece && b.Mount.socket.Type == o.Mount.socket.Type
}
