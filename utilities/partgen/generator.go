package main

import (
	"fmt"

	"github.com/lawnchairsociety/stationgen/internal/catalog"
)

// Options selects which parametric parts to emit.
type Options struct {
	SocketType      string
	HubSizes        []int
	CorridorLengths []int
	ShaftHeights    []int
}

// Family is a group of related parts written under one heading.
type Family struct {
	Title string
	Parts []catalog.PartDef
}

func block(dir string, x, y, z int) catalog.BlockDef {
	return catalog.BlockDef{Piece: "door", Direction: dir, Anchor: [3]int{x, y, z}}
}

func (o Options) socket(name string, b catalog.BlockDef) catalog.SocketDef {
	return catalog.SocketDef{Type: o.SocketType, Name: name, Blocks: []catalog.BlockDef{b}}
}

// Generate builds the starter catalog grouped by family.
func Generate(o Options) []Family {
	return []Family{
		{Title: "Hubs: square plates with a door centred on each side", Parts: o.hubs()},
		{Title: "Corridors: straight runs with a door at each end", Parts: o.corridors()},
		{Title: "Shafts: vertical runs joining decks", Parts: o.shafts()},
		{Title: "Junctions", Parts: o.junctions()},
		{Title: "Modules: single-door rooms that supply or consume resources", Parts: o.modules()},
	}
}

func (o Options) hubs() []catalog.PartDef {
	var out []catalog.PartDef
	for _, n := range o.HubSizes {
		h := n / 2
		out = append(out, catalog.PartDef{
			Name: fmt.Sprintf("hub-%d", n),
			Box:  &catalog.BoxDef{Min: [3]int{-h, 0, -h}, Max: [3]int{h, 0, h}},
			Sockets: []catalog.SocketDef{
				o.socket("north", block("forward", 0, 0, -h)),
				o.socket("south", block("backward", 0, 0, h)),
				o.socket("west", block("left", -h, 0, 0)),
				o.socket("east", block("right", h, 0, 0)),
			},
			Resources: map[string]float64{"crew": float64(n - 1), "power": -2},
		})
	}
	return out
}

func (o Options) corridors() []catalog.PartDef {
	var out []catalog.PartDef
	for _, l := range o.CorridorLengths {
		out = append(out, catalog.PartDef{
			Name: fmt.Sprintf("corridor-%d", l),
			Box:  &catalog.BoxDef{Min: [3]int{0, 0, 0}, Max: [3]int{0, 0, l - 1}},
			Sockets: []catalog.SocketDef{
				o.socket("a", block("forward", 0, 0, 0)),
				o.socket("b", block("backward", 0, 0, l-1)),
			},
			Resources: map[string]float64{"power": -0.25 * float64(l)},
		})
	}
	return out
}

func (o Options) shafts() []catalog.PartDef {
	var out []catalog.PartDef
	for _, h := range o.ShaftHeights {
		out = append(out, catalog.PartDef{
			Name: fmt.Sprintf("shaft-%d", h),
			Box:  &catalog.BoxDef{Min: [3]int{0, 0, 0}, Max: [3]int{0, h - 1, 0}},
			Sockets: []catalog.SocketDef{
				o.socket("bottom", block("forward", 0, 0, 0)),
				o.socket("top", block("backward", 0, h-1, 0)),
			},
			Resources: map[string]float64{"power": -1},
		})
	}
	return out
}

func (o Options) junctions() []catalog.PartDef {
	return []catalog.PartDef{
		{
			Name:  "elbow",
			Cells: [][3]int{{0, 0, 0}},
			Sockets: []catalog.SocketDef{
				o.socket("a", block("forward", 0, 0, 0)),
				o.socket("b", block("right", 0, 0, 0)),
			},
		},
		{
			Name: "tee",
			Box:  &catalog.BoxDef{Min: [3]int{0, 0, -1}, Max: [3]int{0, 0, 1}},
			Sockets: []catalog.SocketDef{
				o.socket("a", block("forward", 0, 0, -1)),
				o.socket("b", block("backward", 0, 0, 1)),
				o.socket("side", block("right", 0, 0, 0)),
			},
		},
		{
			Name:  "cross",
			Cells: [][3]int{{0, 0, 0}},
			Sockets: []catalog.SocketDef{
				o.socket("north", block("forward", 0, 0, 0)),
				o.socket("south", block("backward", 0, 0, 0)),
				o.socket("west", block("left", 0, 0, 0)),
				o.socket("east", block("right", 0, 0, 0)),
			},
		},
		{
			Name:  "cap",
			Cells: [][3]int{{0, 0, 0}},
			Sockets: []catalog.SocketDef{
				o.socket("end", block("forward", 0, 0, 0)),
			},
		},
	}
}

func (o Options) modules() []catalog.PartDef {
	quarters := o.socket("door", block("forward", 1, 0, 0))
	quarters.Rule = "exclude_same_part_kind"
	return []catalog.PartDef{
		{
			Name:      "quarters",
			Box:       &catalog.BoxDef{Min: [3]int{0, 0, 0}, Max: [3]int{2, 0, 2}},
			Sockets:   []catalog.SocketDef{quarters},
			Resources: map[string]float64{"crew": 6, "power": -1},
		},
		{
			Name:      "reactor",
			Box:       &catalog.BoxDef{Min: [3]int{0, 0, 0}, Max: [3]int{2, 1, 2}},
			Sockets:   []catalog.SocketDef{o.socket("door", block("forward", 1, 0, 0))},
			Resources: map[string]float64{"power": 12, "crew": -2},
		},
		{
			Name: "solar-array",
			Box:  &catalog.BoxDef{Min: [3]int{0, 0, 0}, Max: [3]int{2, 0, 0}},
			Reserved: []catalog.ReservedDef{
				{Min: [3]int{0, 1, 0}, Max: [3]int{2, 2, 0}, Optional: true},
			},
			Sockets:   []catalog.SocketDef{o.socket("mount", block("backward", 1, 0, 0))},
			Resources: map[string]float64{"power": 4},
		},
		{
			Name:      "hydroponics",
			Box:       &catalog.BoxDef{Min: [3]int{0, 0, 0}, Max: [3]int{1, 0, 2}},
			Sockets:   []catalog.SocketDef{o.socket("door", block("forward", 0, 0, 0))},
			Resources: map[string]float64{"food": 5, "power": -2},
		},
	}
}

// Flatten returns every part in family order.
func Flatten(families []Family) []catalog.PartDef {
	var out []catalog.PartDef
	for _, f := range families {
		out = append(out, f.Parts...)
	}
	return out
}
