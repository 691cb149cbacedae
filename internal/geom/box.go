package geom

import "fmt"

// Box is an axis-aligned box of grid cells. Both corners are inclusive.
type Box struct {
	Min, Max Vec3
}

// NewBox builds the box spanning two corners in any order.
func NewBox(a, b Vec3) Box {
	return Box{Min: a.Min(b), Max: a.Max(b)}
}

// BoxOf returns the smallest box containing every cell. It returns the zero
// box and false when cells is empty.
func BoxOf(cells []Vec3) (Box, bool) {
	if len(cells) == 0 {
		return Box{}, false
	}
	b := Box{Min: cells[0], Max: cells[0]}
	for _, c := range cells[1:] {
		b.Min = b.Min.Min(c)
		b.Max = b.Max.Max(c)
	}
	return b, true
}

// Contains reports whether the cell lies inside the box.
func (b Box) Contains(v Vec3) bool {
	return v.X >= b.Min.X && v.X <= b.Max.X &&
		v.Y >= b.Min.Y && v.Y <= b.Max.Y &&
		v.Z >= b.Min.Z && v.Z <= b.Max.Z
}

// Intersects reports whether the boxes share at least one cell.
func (b Box) Intersects(o Box) bool {
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y &&
		b.Min.Z <= o.Max.Z && o.Min.Z <= b.Max.Z
}

// Union returns the smallest box containing both.
func (b Box) Union(o Box) Box {
	return Box{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Size returns the number of cells along each axis.
func (b Box) Size() Vec3 {
	return b.Max.Sub(b.Min).Add(Vec3{1, 1, 1})
}

// Volume returns the number of cells in the box.
func (b Box) Volume() int {
	s := b.Size()
	return s.X * s.Y * s.Z
}

// Center returns the geometric centre of the box in cell units.
func (b Box) Center() (x, y, z float64) {
	return float64(b.Min.X+b.Max.X) / 2, float64(b.Min.Y+b.Max.Y) / 2, float64(b.Min.Z+b.Max.Z) / 2
}

// Transform maps the box through t. Rotations of the grid keep boxes
// axis-aligned, so mapping two opposite corners is enough.
func (b Box) Transform(t Transform) Box {
	return NewBox(t.Apply(b.Min), t.Apply(b.Max))
}

func (b Box) String() string {
	return fmt.Sprintf("[%v..%v]", b.Min, b.Max)
}
