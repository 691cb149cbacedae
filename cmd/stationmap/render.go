package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lawnchairsociety/stationgen/internal/construction"
	"github.com/lawnchairsociety/stationgen/internal/geom"
)

const symbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// roomSymbol cycles through letters and digits by room ID.
func roomSymbol(r *construction.Room) byte {
	return symbols[(r.ID()-1)%len(symbols)]
}

// renderLayer draws one Y layer of c, X across and Z down. Empty cells are
// spaces and cells an open mount point wants filled are '+'.
func renderLayer(out *strings.Builder, c *construction.Construction, y int, bounds geom.Box) {
	open := make(map[geom.Vec3]bool)
	c.EachOpenMount(func(mp *construction.MountPoint) bool {
		for _, loc := range mp.MountLocations() {
			open[loc] = true
		}
		return true
	})

	fmt.Fprintf(out, "Layer y=%d\n", y)
	out.WriteString("    +" + strings.Repeat("-", bounds.Max.X-bounds.Min.X+1) + "+\n")
	for z := bounds.Min.Z; z <= bounds.Max.Z; z++ {
		fmt.Fprintf(out, "%4d|", z)
		for x := bounds.Min.X; x <= bounds.Max.X; x++ {
			cell := geom.V(x, y, z)
			switch r, ok := c.RoomAt(cell); {
			case ok:
				out.WriteByte(roomSymbol(r))
			case open[cell]:
				out.WriteByte('+')
			default:
				out.WriteByte(' ')
			}
		}
		out.WriteString("|\n")
	}
	out.WriteString("    +" + strings.Repeat("-", bounds.Max.X-bounds.Min.X+1) + "+\n")
}

// unreachable returns the rooms not connected to the first room through
// attached mount points, in ID order.
func unreachable(c *construction.Construction) []*construction.Room {
	rooms := c.Rooms()
	if len(rooms) == 0 {
		return nil
	}

	visited := map[*construction.Room]bool{rooms[0]: true}
	queue := []*construction.Room{rooms[0]}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, mp := range current.MountPoints() {
			other := mp.AttachedTo()
			if other == nil || visited[other.Owner()] {
				continue
			}
			visited[other.Owner()] = true
			queue = append(queue, other.Owner())
		}
	}

	var out []*construction.Room
	for _, r := range rooms {
		if !visited[r] {
			out = append(out, r)
		}
	}
	return out
}

// renderConstruction writes the header, connectivity report, requested
// layers and room details.
func renderConstruction(out *strings.Builder, c *construction.Construction, layer int, allLayers bool) {
	fmt.Fprintf(out, "Construction %s (Seed: %d, Rooms: %d, Open mounts: %d)\n",
		c.ID, c.Seed.Value, c.RoomCount(), c.OpenMountCount())
	out.WriteString(strings.Repeat("=", 60) + "\n\n")

	bounds, ok := c.Bounds()
	if !ok {
		out.WriteString("  (No rooms to display)\n")
		return
	}
	// Leave room for '+' markers just outside the footprint.
	bounds = geom.Box{Min: bounds.Min.Sub(geom.V(1, 1, 1)), Max: bounds.Max.Add(geom.V(1, 1, 1))}

	if lost := unreachable(c); len(lost) > 0 {
		out.WriteString("WARNING: Unreachable rooms detected!\n")
		for _, r := range lost {
			fmt.Fprintf(out, "  - #%d %s\n", r.ID(), r.Part().Name)
		}
		out.WriteString("\n")
	} else {
		fmt.Fprintf(out, "All %d rooms are connected.\n\n", c.RoomCount())
	}

	for y := bounds.Min.Y; y <= bounds.Max.Y; y++ {
		if !allLayers && y != layer {
			continue
		}
		renderLayer(out, c, y, bounds)
		out.WriteString("\n")
	}

	out.WriteString("Room Details:\n")
	rooms := slices.Clone(c.Rooms())
	slices.SortFunc(rooms, func(a, b *construction.Room) int { return a.ID() - b.ID() })
	for _, r := range rooms {
		t := r.Transform()
		details := fmt.Sprintf("  [%c] #%-4d %-20s at %v", roomSymbol(r), r.ID(), truncate(r.Part().Name, 20), t.Translation)
		if n := r.OpenMountCount(); n > 0 {
			details += fmt.Sprintf(" [%d open]", n)
		}
		out.WriteString(details + "\n")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func legend() string {
	return `
Legend:
  [A-Z a-z 0-9] Room, by ID
  [+]           Cell an open mount point would attach into
`
}
