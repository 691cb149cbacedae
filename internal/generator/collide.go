package generator

import (
	"github.com/lawnchairsociety/stationgen/internal/construction"
)

// collidesPredictive reports whether placing room would collide with the
// construction. With testMounts set it also rejects rooms whose open mount
// points are blocked, and rooms that sit on another room's open mount point
// without presenting a socket that fits it.
func (g *Generator) collidesPredictive(room *construction.Room, testMounts, testOptional bool) bool {
	c := g.construction
	if c.Intersects(room, testOptional) {
		return true
	}
	if !testMounts {
		return false
	}

	for _, mp := range room.MountPoints() {
		if mp.AttachedToIn(c) != nil {
			continue
		}
		for _, loc := range mp.MountLocations() {
			if c.CubeExists(loc) {
				return true
			}
		}
	}

	blocked := false
	c.EachOpenMount(func(mp *construction.MountPoint) bool {
		for _, b := range mp.Blocks() {
			if !room.CubeExists(b.MountLocation) {
				continue
			}
			if !facesBlock(room, b) {
				blocked = true
				return false
			}
		}
		return true
	})
	return blocked
}

// facesBlock reports whether room has a socket block anchored on b's mount
// location that points back at b.
func facesBlock(room *construction.Room, b construction.WorldBlock) bool {
	for _, mine := range room.BlocksAnchoredAt(b.MountLocation) {
		if mine.TypeEquals(b) && mine.MountLocation == b.Anchor {
			return true
		}
	}
	return false
}
