// Package catalogtest provides a small part catalog shared by tests.
package catalogtest

import (
	"testing"

	"github.com/lawnchairsociety/stationgen/internal/catalog"
)

func block(piece, dir string, x, y, z int) catalog.BlockDef {
	return catalog.BlockDef{Piece: piece, Direction: dir, Anchor: [3]int{x, y, z}}
}

func corridor(name string, b catalog.BlockDef) catalog.SocketDef {
	return catalog.SocketDef{Type: "Corridor", Name: name, Blocks: []catalog.BlockDef{b}}
}

// Defs returns the fixture parts:
//
//	hub       3x1x3 plate with a Corridor socket on each side
//	corridor  1x1x3 straight with sockets at both ends
//	cap       single cell with one socket
//	tee       1x1x3 bar with sockets at both ends and one in the middle
//	dish      single cell with one socket and optional clearance above
func Defs() []catalog.PartDef {
	return []catalog.PartDef{
		{
			Name: "hub",
			Box:  &catalog.BoxDef{Min: [3]int{-1, 0, -1}, Max: [3]int{1, 0, 1}},
			Sockets: []catalog.SocketDef{
				corridor("north", block("door", "forward", 0, 0, -1)),
				corridor("south", block("door", "backward", 0, 0, 1)),
				corridor("west", block("door", "left", -1, 0, 0)),
				corridor("east", block("door", "right", 1, 0, 0)),
			},
			Resources: map[string]float64{"crew": 4, "power": -2},
		},
		{
			Name: "corridor",
			Box:  &catalog.BoxDef{Min: [3]int{0, 0, -1}, Max: [3]int{0, 0, 1}},
			Sockets: []catalog.SocketDef{
				corridor("a", block("door", "forward", 0, 0, -1)),
				corridor("b", block("door", "backward", 0, 0, 1)),
			},
			Resources: map[string]float64{"power": -1},
		},
		{
			Name:  "cap",
			Cells: [][3]int{{0, 0, 0}},
			Sockets: []catalog.SocketDef{
				corridor("end", block("door", "forward", 0, 0, 0)),
			},
		},
		{
			Name: "tee",
			Box:  &catalog.BoxDef{Min: [3]int{-1, 0, 0}, Max: [3]int{1, 0, 0}},
			Sockets: []catalog.SocketDef{
				corridor("left", block("door", "left", -1, 0, 0)),
				corridor("right", block("door", "right", 1, 0, 0)),
				corridor("front", block("door", "forward", 0, 0, 0)),
			},
			Resources: map[string]float64{"power": -1},
		},
		{
			Name:  "dish",
			Cells: [][3]int{{0, 0, 0}},
			Reserved: []catalog.ReservedDef{
				{Min: [3]int{0, 1, 0}, Max: [3]int{0, 3, 0}, Optional: true},
			},
			Sockets: []catalog.SocketDef{
				corridor("base", block("door", "forward", 0, 0, 0)),
			},
			Resources: map[string]float64{"comms": 1},
		},
	}
}

// New builds a catalog holding the named fixture parts, in the order given.
// With no names every fixture part is included.
func New(tb testing.TB, names ...string) *catalog.Catalog {
	tb.Helper()
	defs := Defs()
	if len(names) > 0 {
		byName := make(map[string]catalog.PartDef, len(defs))
		for _, d := range defs {
			byName[d.Name] = d
		}
		defs = defs[:0]
		for _, n := range names {
			d, ok := byName[n]
			if !ok {
				tb.Fatalf("catalogtest: no fixture part %q", n)
			}
			defs = append(defs, d)
		}
	}
	c, err := catalog.New(defs)
	if err != nil {
		tb.Fatalf("catalogtest: %v", err)
	}
	return c
}

// Part returns the named part from c.
func Part(tb testing.TB, c *catalog.Catalog, name string) *catalog.Part {
	tb.Helper()
	p, err := c.PartByName(name)
	if err != nil {
		tb.Fatalf("catalogtest: %v", err)
	}
	return p
}
