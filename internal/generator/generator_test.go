package generator

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/lawnchairsociety/stationgen/internal/catalog"
	"github.com/lawnchairsociety/stationgen/internal/catalog/catalogtest"
	"github.com/lawnchairsociety/stationgen/internal/construction"
	"github.com/lawnchairsociety/stationgen/internal/geom"
	"github.com/lawnchairsociety/stationgen/internal/mount"
	"github.com/lawnchairsociety/stationgen/internal/seed"
)

func newGenerator(t *testing.T, cat *catalog.Catalog, seedPart string, opts Options) (*construction.Construction, *Generator) {
	t.Helper()
	c := construction.New(cat, seed.Seed{Value: 7})
	if err := c.AddRoom(construction.NewRoom(catalogtest.Part(t, cat, seedPart), geom.Identity())); err != nil {
		t.Fatalf("AddRoom: %v", err)
	}
	g, err := New(c, mount.NewMatcher(cat, mount.DefaultConfig()), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, g
}

func checkInFactors(t *testing.T, g *Generator) {
	t.Helper()
	for _, m := range g.openRooms {
		want := 0
		for _, mp := range m.room.MountPoints() {
			if mp.AttachedToIn(g.construction) != nil {
				want++
			}
		}
		if m.inFactor != want {
			t.Errorf("%s in-factor = %d, want %d", m.room, m.inFactor, want)
		}
		if m.inFactor < 1 {
			t.Errorf("%s is live with in-factor %d", m.room, m.inFactor)
		}
	}
}

func checkPlacement(t *testing.T, c *construction.Construction) {
	t.Helper()
	for _, r := range c.Rooms() {
		for _, cell := range r.Cells() {
			if owner, _ := c.RoomAt(cell); owner != r {
				t.Errorf("cell %v of %s is owned by %v", cell, r, owner)
			}
		}
		if c.Intersects(r, true) {
			t.Errorf("%s intersects another placed room", r)
		}
		for _, mp := range r.MountPoints() {
			if other := mp.AttachedTo(); other != nil && other.AttachedTo() != mp {
				t.Errorf("attachment of %s:%s is not symmetric", r, mp.Socket().Key())
			}
		}
	}
}

func signature(c *construction.Construction) []string {
	var out []string
	for _, r := range c.Rooms() {
		out = append(out, fmt.Sprintf("%d %s %v", r.ID(), r.Part().Name, r.Transform()))
	}
	return out
}

func TestNewValidates(t *testing.T) {
	cat := catalogtest.New(t, "hub", "corridor")
	c := construction.New(cat, seed.Seed{})

	other := catalogtest.New(t, "hub")
	if _, err := New(c, mount.NewMatcher(other, mount.DefaultConfig()), DefaultOptions()); !errors.Is(err, ErrCatalogMismatch) {
		t.Errorf("New with foreign matcher = %v, want ErrCatalogMismatch", err)
	}

	opts := DefaultOptions()
	opts.Selection = SelectQuantile
	opts.Quantile = 1
	if _, err := New(c, mount.NewMatcher(cat, mount.DefaultConfig()), opts); !errors.Is(err, ErrInvalidQuantile) {
		t.Errorf("New with quantile 1 = %v, want ErrInvalidQuantile", err)
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		in      string
		want    Selection
		wantErr bool
	}{
		{"", SelectBest, false},
		{"best", SelectBest, false},
		{"Quantile", SelectQuantile, false},
		{"random", SelectBest, true},
	}
	for _, tc := range tests {
		got, err := ParseSelection(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseSelection(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseSelection(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// A hub with four open sockets and only corridors to offer: one step adds a
// corridor, and every candidate waiting on the closed socket is decremented
// and dropped.
func TestHubStepClosesOneSocket(t *testing.T) {
	cat := catalogtest.New(t, "hub", "corridor")
	opts := DefaultOptions()
	opts.Filter = catalog.ExcludeParts("hub")
	c, g := newGenerator(t, cat, "hub", opts)
	hub := c.Rooms()[0]

	g.nonce++
	g.processOpenMountPoints()
	if got := len(g.openRooms); got != 32 {
		t.Fatalf("registered %d candidates, want 32", got)
	}
	before := make(map[*construction.MountPoint][]*roomMeta)
	inFactor := make(map[*roomMeta]int)
	for mp, set := range g.possibleRooms {
		set.Each(func(m *roomMeta) {
			before[mp] = append(before[mp], m)
			inFactor[m] = m.inFactor
		})
	}
	if len(before) != 4 {
		t.Fatalf("candidates wait on %d mount points, want 4", len(before))
	}
	for m, n := range inFactor {
		if n != 1 {
			t.Errorf("%s in-factor = %d, want 1", m.room, n)
		}
	}

	g.processOpenRooms(1, true)
	if got := g.choice.Count(); got != 32 {
		t.Fatalf("valid options = %d, want 32", got)
	}
	if !g.appendRoom() {
		t.Fatal("appendRoom failed")
	}

	if got := c.RoomCount(); got != 2 {
		t.Fatalf("RoomCount = %d, want 2", got)
	}
	if got := c.Rooms()[1].Part().Name; got != "corridor" {
		t.Errorf("placed %s, want corridor", got)
	}
	if got := c.OpenMountCount(); got != 4 {
		t.Errorf("OpenMountCount = %d, want 4", got)
	}

	var closed *construction.MountPoint
	for _, mp := range hub.MountPoints() {
		if !mp.IsOpen() {
			if closed != nil {
				t.Fatal("more than one hub socket closed")
			}
			closed = mp
		}
	}
	if closed == nil {
		t.Fatal("no hub socket closed")
	}
	if _, ok := g.possibleRooms[closed]; ok {
		t.Error("closed mount point still has candidates")
	}
	for mp, metas := range before {
		for _, m := range metas {
			if mp == closed {
				if m.inFactor != inFactor[m]-1 || !m.removed {
					t.Errorf("%s in-factor %d removed %v, want %d and removed",
						m.room, m.inFactor, m.removed, inFactor[m]-1)
				}
				continue
			}
			if m.inFactor != inFactor[m] || m.removed {
				t.Errorf("%s on an open socket changed: in-factor %d removed %v", m.room, m.inFactor, m.removed)
			}
		}
	}
	checkPlacement(t, c)
}

// With one open socket and a closing target, the part that closes it beats
// parts that keep the count level or grow it.
func TestClosingPrefersTerminalPart(t *testing.T) {
	cat := catalogtest.New(t, "cap", "corridor", "tee")
	c, g := newGenerator(t, cat, "cap", DefaultOptions())

	if !g.StepGeneration(-10, true) {
		t.Fatal("StepGeneration made no progress")
	}
	if got := c.RoomCount(); got != 2 {
		t.Fatalf("RoomCount = %d, want 2", got)
	}
	if got := c.Rooms()[1].Part().Name; got != "cap" {
		t.Errorf("placed %s, want cap", got)
	}
	if got := c.OpenMountCount(); got != 0 {
		t.Errorf("OpenMountCount = %d, want 0", got)
	}
	if g.State() != StateIdle {
		t.Errorf("State = %v, want idle", g.State())
	}

	if g.StepGeneration(-10, true) {
		t.Error("step on a closed construction made progress")
	}
	if g.State() != StateStalled {
		t.Errorf("State = %v, want stalled", g.State())
	}
}

func TestStallWhenFilterRejectsEverything(t *testing.T) {
	cat := catalogtest.New(t, "hub", "corridor")
	opts := DefaultOptions()
	opts.Filter = func(*catalog.Part) bool { return false }
	c, g := newGenerator(t, cat, "hub", opts)

	if g.StepGeneration(1, true) {
		t.Fatal("StepGeneration made progress with no parts")
	}
	if c.RoomCount() != 1 {
		t.Errorf("RoomCount = %d, want 1", c.RoomCount())
	}
	if s := g.Stats(); s.Stalls != 1 || s.Commits != 0 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestGrowthKeepsInvariants(t *testing.T) {
	cat := catalogtest.New(t, "hub", "corridor", "cap")
	c, g := newGenerator(t, cat, "hub", DefaultOptions())

	var committed []*construction.Room
	g.OnCommit = func(r *construction.Room) { committed = append(committed, r) }

	for i := 0; i < 12; i++ {
		if !g.StepGeneration(1, true) {
			break
		}
		g.nonce++
		g.processOpenMountPoints()
		checkInFactors(t, g)
		checkPlacement(t, c)
	}
	if c.RoomCount() < 2 {
		t.Fatalf("RoomCount = %d, want growth", c.RoomCount())
	}
	if len(committed) != c.RoomCount()-1 {
		t.Errorf("OnCommit saw %d rooms, want %d", len(committed), c.RoomCount()-1)
	}
	if g.Stats().Commits != len(committed) {
		t.Errorf("Stats.Commits = %d, want %d", g.Stats().Commits, len(committed))
	}
}

func TestGenerationIsDeterministic(t *testing.T) {
	for _, sel := range []Selection{SelectBest, SelectQuantile} {
		t.Run(sel.String(), func(t *testing.T) {
			run := func() []string {
				cat := catalogtest.New(t, "hub", "corridor", "cap")
				opts := DefaultOptions()
				opts.Selection = sel
				c, g := newGenerator(t, cat, "hub", opts)
				for i := 0; i < 8; i++ {
					if !g.StepGeneration(1, true) {
						break
					}
				}
				return signature(c)
			}
			a, b := run(), run()
			if len(a) != len(b) {
				t.Fatalf("runs placed %d and %d rooms", len(a), len(b))
			}
			for i := range a {
				if a[i] != b[i] {
					t.Errorf("room %d: %q vs %q", i, a[i], b[i])
				}
			}
		})
	}
}

func TestGrowthScore(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		target float64
		free   int
		want   float64
	}{
		{"close while shrinking", -1, -10, 1, -81 * 10 / math.Sqrt(2)},
		{"level while shrinking", 0, -10, 1, -100 * 10 / math.Sqrt(2)},
		{"grow while shrinking", 1, -10, 1, -1e10 - 121*math.Sqrt(2)},
		{"level while growing", 0, 1, 4, -10 / math.Sqrt(5)},
		{"grow on target", 1, 1, 4, 0},
		{"overshoot", 2, 1, 4, -math.Sqrt(5)},
		{"dead end while growing", -1, 0, 1, -1e10 - 10/math.Sqrt(2)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := growthScore(tc.count, tc.target, tc.free, 1e10)
			if math.Abs(got-tc.want) > 1e-6*math.Max(1, math.Abs(tc.want)) {
				t.Errorf("growthScore(%d, %v, %d) = %v, want %v", tc.count, tc.target, tc.free, got, tc.want)
			}
		})
	}
}

func TestNoiseKeyDependsOnTransform(t *testing.T) {
	cat := catalogtest.New(t, "cap")
	p := catalogtest.Part(t, cat, "cap")
	a := construction.NewRoom(p, geom.Identity())
	b := construction.NewRoom(p, geom.Translate(geom.V(1, 0, 0)))
	if string(noiseKey(a)) == string(noiseKey(b)) {
		t.Error("noise keys equal for different placements")
	}
}

func TestCollidesPredictive(t *testing.T) {
	cat := catalogtest.New(t, "hub", "cap")
	_, g := newGenerator(t, cat, "hub", DefaultOptions())
	capPart := catalogtest.Part(t, cat, "cap")
	turn := geom.RotationsMapping(geom.Forward, geom.Backward)[0]

	tests := []struct {
		name string
		t    geom.Transform
		want bool
	}{
		{"closes north socket", geom.NewTransform(turn, geom.V(0, 0, -2)), false},
		{"sits on north socket facing away", geom.Translate(geom.V(0, 0, -2)), true},
		{"own socket blocked by hub", geom.Translate(geom.V(1, 0, 2)), true},
		{"overlaps hub", geom.Translate(geom.V(1, 0, 1)), true},
		{"free standing", geom.Translate(geom.V(5, 0, 5)), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			room := construction.NewRoom(capPart, tc.t)
			if got := g.collidesPredictive(room, true, true); got != tc.want {
				t.Errorf("collidesPredictive = %v, want %v", got, tc.want)
			}
		})
	}

	room := construction.NewRoom(capPart, geom.Translate(geom.V(0, 0, -2)))
	if g.collidesPredictive(room, false, true) {
		t.Error("mount checks ran with testMounts unset")
	}
}
