// Package export turns a construction into a triangle mesh.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/lawnchairsociety/stationgen/internal/catalog"
	"github.com/lawnchairsociety/stationgen/internal/construction"
	"github.com/lawnchairsociety/stationgen/internal/geom"
	"github.com/lawnchairsociety/stationgen/internal/logger"
	"github.com/lawnchairsociety/stationgen/internal/seed"
)

var ErrEmpty = errors.New("export: construction has no rooms")

// Options tunes mesh generation.
type Options struct {
	// MeshCells is the marching cubes resolution along the longest axis.
	MeshCells int
	// GridSize is the edge length of one grid cell.
	GridSize float64
}

// DefaultOptions returns 200 cells and a 2.5 unit grid.
func DefaultOptions() Options {
	return Options{MeshCells: 200, GridSize: 2.5}
}

// Runs merges cells into boxes one cell thick in Y and Z, running along X.
// The result is sorted by Z, then Y, then X.
func Runs(cells []geom.Vec3) []geom.Box {
	sorted := slices.Clone(cells)
	slices.SortFunc(sorted, func(a, b geom.Vec3) int {
		if a.Z != b.Z {
			return a.Z - b.Z
		}
		if a.Y != b.Y {
			return a.Y - b.Y
		}
		return a.X - b.X
	})
	sorted = slices.Compact(sorted)

	var runs []geom.Box
	for _, c := range sorted {
		if n := len(runs); n > 0 {
			last := &runs[n-1]
			if last.Max.Y == c.Y && last.Max.Z == c.Z && last.Max.X+1 == c.X {
				last.Max.X = c.X
				continue
			}
		}
		runs = append(runs, geom.Box{Min: c, Max: c})
	}
	return runs
}

// Solid builds the union of every room's cells. Cell v spans
// [v*grid, (v+1)*grid] on each axis.
func Solid(c *construction.Construction, grid float64) (sdf.SDF3, error) {
	var parts []sdf.SDF3
	for _, r := range c.Rooms() {
		for _, b := range Runs(r.Cells()) {
			s, err := boxSolid(b, grid)
			if err != nil {
				return nil, fmt.Errorf("room %d: %w", r.ID(), err)
			}
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return nil, ErrEmpty
	}
	return sdf.Union3D(parts...), nil
}

func boxSolid(b geom.Box, grid float64) (sdf.SDF3, error) {
	size := b.Size()
	s, err := sdf.Box3D(v3.Vec{X: float64(size.X) * grid, Y: float64(size.Y) * grid, Z: float64(size.Z) * grid}, 0)
	if err != nil {
		return nil, err
	}
	// Box3D is centred on the origin.
	x, y, z := b.Center()
	m := sdf.Translate3d(v3.Vec{X: (x + 0.5) * grid, Y: (y + 0.5) * grid, Z: (z + 0.5) * grid})
	return sdf.Transform3D(s, m), nil
}

// Mesh tessellates the construction with marching cubes.
func Mesh(c *construction.Construction, opts Options) ([]*sdf.Triangle3, error) {
	s, err := Solid(c, opts.GridSize)
	if err != nil {
		return nil, err
	}
	return render.ToTriangles(s, render.NewMarchingCubesUniform(opts.MeshCells)), nil
}

// SaveSTL meshes c and writes it to path as binary STL, returning the
// triangle count.
func SaveSTL(c *construction.Construction, path string, opts Options) (int, error) {
	tris, err := Mesh(c, opts)
	if err != nil {
		return 0, err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Info("Exported mesh", "path", path, "rooms", c.RoomCount(), "triangles", len(tris))
	return len(tris), nil
}

// Preview builds a construction holding a single copy of part at the
// origin.
func Preview(cat *catalog.Catalog, part *catalog.Part) (*construction.Construction, error) {
	c := construction.New(cat, seed.Seed{})
	if err := c.AddRoom(construction.NewRoom(part, geom.Identity())); err != nil {
		return nil, err
	}
	return c, nil
}
