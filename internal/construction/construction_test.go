package construction

import (
	"errors"
	"math"
	"testing"

	"github.com/lawnchairsociety/stationgen/internal/catalog"
	"github.com/lawnchairsociety/stationgen/internal/catalog/catalogtest"
	"github.com/lawnchairsociety/stationgen/internal/geom"
	"github.com/lawnchairsociety/stationgen/internal/mount"
	"github.com/lawnchairsociety/stationgen/internal/seed"
)

func newFixture(t *testing.T) (*catalog.Catalog, *Construction) {
	t.Helper()
	cat := catalogtest.New(t)
	return cat, New(cat, seed.Seed{Value: 1})
}

func corridorSocket(t *testing.T, p *catalog.Part, name string) *catalog.Socket {
	t.Helper()
	s, ok := p.Socket("Corridor", name)
	if !ok {
		t.Fatalf("%s has no Corridor:%s", p.Name, name)
	}
	return s
}

// attach places part so that its socket joins the given mount point.
func attach(t *testing.T, to *MountPoint, part *catalog.Part, socketName string) *Room {
	t.Helper()
	ts := mount.Match(to.Socket(), corridorSocket(t, part, socketName))
	if len(ts) == 0 {
		t.Fatalf("%s:%s cannot join %s", part.Name, socketName, to.Socket().Key())
	}
	return NewRoom(part, geom.Compose(ts[0], to.Owner().Transform()))
}

func assertSymmetric(t *testing.T, c *Construction) {
	t.Helper()
	for _, r := range c.Rooms() {
		for _, m := range r.MountPoints() {
			if o := m.AttachedTo(); o != nil && o.AttachedTo() != m {
				t.Errorf("%v %s attached to %v %s, but not the other way round",
					r, m.Socket().Key(), o.Owner(), o.Socket().Key())
			}
		}
	}
}

func TestAddRoomAssignsIDs(t *testing.T) {
	cat, c := newFixture(t)
	hub := catalogtest.Part(t, cat, "hub")

	a := NewRoom(hub, geom.Identity())
	if a.ID() != UnassignedID {
		t.Fatalf("new room ID = %d, want unassigned", a.ID())
	}
	if err := c.AddRoom(a); err != nil {
		t.Fatalf("AddRoom() error = %v", err)
	}
	b := NewRoom(hub, geom.Translate(geom.V(10, 0, 0)))
	if err := c.AddRoom(b); err != nil {
		t.Fatalf("AddRoom() error = %v", err)
	}
	if a.ID() != 1 || b.ID() != 2 {
		t.Errorf("IDs = %d, %d, want 1, 2", a.ID(), b.ID())
	}
	if c.MaxID() != 2 {
		t.Errorf("MaxID() = %d, want 2", c.MaxID())
	}

	if err := c.AddRoom(a); !errors.Is(err, ErrRoomOwned) {
		t.Errorf("re-adding owned room error = %v, want ErrRoomOwned", err)
	}

	dup := NewRoom(hub, geom.Translate(geom.V(20, 0, 0)))
	dup.SetID(2)
	if err := c.AddRoom(dup); !errors.Is(err, ErrDuplicateRoomID) {
		t.Errorf("duplicate ID error = %v, want ErrDuplicateRoomID", err)
	}
	if c.RoomCount() != 2 {
		t.Errorf("RoomCount() = %d after rejected add, want 2", c.RoomCount())
	}

	explicit := NewRoom(hub, geom.Translate(geom.V(30, 0, 0)))
	explicit.SetID(9)
	if err := c.AddRoom(explicit); err != nil {
		t.Fatalf("AddRoom(explicit) error = %v", err)
	}
	next := NewRoom(hub, geom.Translate(geom.V(40, 0, 0)))
	c.AddRoom(next)
	if next.ID() != 10 {
		t.Errorf("ID after explicit 9 = %d, want 10", next.ID())
	}
}

func TestBoundingBoxFollowsTransform(t *testing.T) {
	cat, _ := newFixture(t)
	corr := catalogtest.Part(t, cat, "corridor")

	r := NewRoom(corr, geom.Identity())
	if got, want := r.BoundingBox(), geom.NewBox(geom.V(0, 0, -1), geom.V(0, 0, 1)); got != want {
		t.Errorf("BoundingBox() = %v, want %v", got, want)
	}
	rot := geom.RotationsMapping(geom.Forward, geom.Right)[0]
	if err := r.SetTransform(geom.NewTransform(rot, geom.V(5, 0, 0))); err != nil {
		t.Fatal(err)
	}
	if got, want := r.BoundingBox(), geom.NewBox(geom.V(4, 0, 0), geom.V(6, 0, 0)); got != want {
		t.Errorf("BoundingBox() after SetTransform = %v, want %v", got, want)
	}
}

func TestAttachmentSymmetry(t *testing.T) {
	cat, c := newFixture(t)
	hub := NewRoom(catalogtest.Part(t, cat, "hub"), geom.Identity())
	if err := c.AddRoom(hub); err != nil {
		t.Fatal(err)
	}
	if c.OpenMountCount() != 4 {
		t.Fatalf("OpenMountCount() = %d, want 4", c.OpenMountCount())
	}

	north := hub.MountPoint(corridorSocket(t, hub.Part(), "north"))
	corr := attach(t, north, catalogtest.Part(t, cat, "corridor"), "b")

	if partner := corr.MountPoint(corridorSocket(t, corr.Part(), "b")).AttachedToIn(c); partner != north {
		t.Fatalf("AttachedToIn() = %v, want hub north", partner)
	}
	if err := c.AddRoom(corr); err != nil {
		t.Fatal(err)
	}
	assertSymmetric(t, c)

	if north.IsOpen() {
		t.Error("hub north still open after corridor placed")
	}
	if got := c.OpenMountCount(); got != 4 {
		t.Errorf("OpenMountCount() = %d, want 4 (3 hub + 1 corridor)", got)
	}
	if c.Intersects(corr, true) || c.Intersects(hub, true) {
		t.Error("placed rooms intersect each other")
	}

	if err := c.RemoveRoom(corr); err != nil {
		t.Fatal(err)
	}
	if !north.IsOpen() {
		t.Error("hub north not reopened after corridor removed")
	}
	for _, m := range corr.MountPoints() {
		if m.AttachedTo() != nil {
			t.Errorf("removed room still attached via %s", m.Socket().Key())
		}
	}
	if got := c.OpenMountCount(); got != 4 {
		t.Errorf("OpenMountCount() after removal = %d, want 4", got)
	}
	if err := c.RemoveRoom(corr); !errors.Is(err, ErrNotMember) {
		t.Errorf("second RemoveRoom error = %v, want ErrNotMember", err)
	}
}

func TestRoomJoiningTwoMounts(t *testing.T) {
	cat, c := newFixture(t)
	corr := catalogtest.Part(t, cat, "corridor")

	// Two corridors in a line with a one-corridor gap between them.
	first := NewRoom(corr, geom.Identity())
	second := NewRoom(corr, geom.Translate(geom.V(0, 0, -6)))
	c.AddRoom(first)
	c.AddRoom(second)
	if c.OpenMountCount() != 4 {
		t.Fatalf("OpenMountCount() = %d, want 4", c.OpenMountCount())
	}

	gap := NewRoom(corr, geom.Translate(geom.V(0, 0, -3)))
	if c.Intersects(gap, true) {
		t.Fatal("gap filler collides")
	}
	c.AddRoom(gap)
	assertSymmetric(t, c)
	if gap.OpenMountCount() != 0 {
		t.Errorf("gap filler has %d open mounts, want 0", gap.OpenMountCount())
	}
	if c.OpenMountCount() != 2 {
		t.Errorf("OpenMountCount() = %d, want 2", c.OpenMountCount())
	}
}

func TestIntersectsFootprint(t *testing.T) {
	cat, c := newFixture(t)
	hub := catalogtest.Part(t, cat, "hub")
	c.AddRoom(NewRoom(hub, geom.Identity()))

	tests := []struct {
		name   string
		offset geom.Vec3
		want   bool
	}{
		{"same place", geom.V(0, 0, 0), true},
		{"one cell overlap", geom.V(2, 0, 0), true},
		{"adjacent", geom.V(3, 0, 0), false},
		{"stacked", geom.V(0, 1, 0), false},
		{"far", geom.V(50, 0, 50), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRoom(hub, geom.Translate(tc.offset))
			if got := c.Intersects(r, true); got != tc.want {
				t.Errorf("Intersects() = %v, want %v", got, tc.want)
			}
		})
	}
	if !c.CubeExists(geom.V(1, 0, 1)) || c.CubeExists(geom.V(2, 0, 0)) {
		t.Error("CubeExists disagrees with the hub footprint")
	}
}

func TestIntersectsOptionalReserved(t *testing.T) {
	cat, c := newFixture(t)
	c.AddRoom(NewRoom(catalogtest.Part(t, cat, "dish"), geom.Identity()))

	inClearance := NewRoom(catalogtest.Part(t, cat, "cap"), geom.Translate(geom.V(0, 2, 0)))
	if !c.Intersects(inClearance, true) {
		t.Error("cap inside optional clearance should collide when optional space is tested")
	}
	if c.Intersects(inClearance, false) {
		t.Error("cap inside optional clearance should not collide when optional space is ignored")
	}
}

func TestIntersectsSharedReserved(t *testing.T) {
	cat, err := catalog.New([]catalog.PartDef{
		{
			Name:     "conduit",
			Cells:    [][3]int{{0, 0, 0}},
			Reserved: []catalog.ReservedDef{{Min: [3]int{1, 0, 0}, Max: [3]int{3, 0, 0}, Shared: true}},
		},
		{
			Name:     "vent",
			Cells:    [][3]int{{0, 0, 0}},
			Reserved: []catalog.ReservedDef{{Min: [3]int{1, 0, 0}, Max: [3]int{3, 0, 0}}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	conduit, _ := cat.PartByName("conduit")
	vent, _ := cat.PartByName("vent")

	c := New(cat, seed.Seed{})
	c.AddRoom(NewRoom(conduit, geom.Identity()))

	// Facing back towards the first conduit: regions overlap at x=2..3.
	mirrored := geom.NewTransform(geom.RotationsMapping(geom.Right, geom.Left)[0], geom.V(5, 0, 0))
	if c.Intersects(NewRoom(conduit, mirrored), true) {
		t.Error("two shared regions should be allowed to overlap")
	}
	if !c.Intersects(NewRoom(vent, mirrored), true) {
		t.Error("an exclusive region overlapping a shared one should collide")
	}
	if !c.Intersects(NewRoom(vent, geom.Translate(geom.V(2, 0, 0))), true) {
		t.Error("a cell inside a reserved region should collide")
	}
}

func TestRegisterRoomTransactionally(t *testing.T) {
	cat, c := newFixture(t)
	c.Seed.Profile = seed.Profile{Targets: map[string]float64{"crew": 8}}
	c.SetScorer(c.Seed.Scorer())
	hub := catalogtest.Part(t, cat, "hub")

	seedRoom := NewRoom(hub, geom.Identity())
	c.AddRoom(seedRoom)
	if got := c.ComputeErrorAgainstSeed(); got != 16 {
		t.Fatalf("ComputeErrorAgainstSeed() = %v, want 16", got)
	}

	north := seedRoom.MountPoint(corridorSocket(t, hub, "north"))
	candidate := attach(t, north, hub, "south")

	var during float64
	var openDuring int
	err := c.RegisterRoomTransactionally(candidate, func(r *Room) error {
		during = c.ComputeErrorAgainstSeed()
		openDuring = c.OpenMountCount()
		if r.ID() != 2 {
			t.Errorf("speculative room ID = %d, want 2", r.ID())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RegisterRoomTransactionally() error = %v", err)
	}
	if during != 0 {
		t.Errorf("error during speculation = %v, want 0", during)
	}
	if openDuring != 6 {
		t.Errorf("open mounts during speculation = %d, want 6", openDuring)
	}

	if c.RoomCount() != 1 || candidate.Owner() != nil {
		t.Error("speculative room not removed")
	}
	if candidate.ID() != UnassignedID || c.MaxID() != 1 {
		t.Errorf("identity consumed: room ID %d, MaxID %d", candidate.ID(), c.MaxID())
	}
	if !north.IsOpen() || c.OpenMountCount() != 4 {
		t.Error("seed mounts not restored")
	}
	if got := c.ComputeErrorAgainstSeed(); got != 16 {
		t.Errorf("error after rollback = %v, want 16", got)
	}

	sentinel := errors.New("measure failed")
	if err := c.RegisterRoomTransactionally(candidate, func(*Room) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want sentinel", err)
	}
	if c.RoomCount() != 1 {
		t.Error("room left behind after failing callback")
	}

	func() {
		defer func() { recover() }()
		c.RegisterRoomTransactionally(candidate, func(*Room) error { panic("boom") })
	}()
	if c.RoomCount() != 1 || candidate.Owner() != nil {
		t.Error("room left behind after panicking callback")
	}

	// The room can still be committed for real afterwards.
	if err := c.AddRoom(candidate); err != nil || candidate.ID() != 2 {
		t.Errorf("commit after speculation: ID %d, err %v", candidate.ID(), err)
	}
}

func TestRegisterRoomTransactionallyRestoresTotals(t *testing.T) {
	defs := catalogtest.Defs()
	for i := range defs {
		switch defs[i].Name {
		case "hub":
			defs[i].Resources = map[string]float64{"power": 0.1}
		case "corridor":
			defs[i].Resources = map[string]float64{"power": 0.7, "crew": 0.3}
		}
	}
	cat, err := catalog.New(defs)
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	c := New(cat, seed.Seed{Value: 1})
	hub := catalogtest.Part(t, cat, "hub")
	corridor := catalogtest.Part(t, cat, "corridor")

	if err := c.AddRoom(NewRoom(hub, geom.Identity())); err != nil {
		t.Fatalf("AddRoom() error = %v", err)
	}
	before := c.Totals()

	for i := 0; i < 3; i++ {
		candidate := NewRoom(corridor, geom.Translate(geom.V(10*(i+1), 0, 0)))
		if err := c.RegisterRoomTransactionally(candidate, func(*Room) error { return nil }); err != nil {
			t.Fatalf("RegisterRoomTransactionally() error = %v", err)
		}
	}

	after := c.Totals()
	if len(after) != len(before) {
		t.Fatalf("Totals() = %v, want %v", after, before)
	}
	for k, v := range before {
		if math.Float64bits(after[k]) != math.Float64bits(v) {
			t.Errorf("Totals()[%q] = %.20g, want %.20g", k, after[k], v)
		}
	}
	if _, ok := after["crew"]; ok {
		t.Error("resource introduced by a speculative room was left behind")
	}
}

func TestErrorBreakdown(t *testing.T) {
	cat, c := newFixture(t)
	c.Seed.Profile = seed.Profile{Targets: map[string]float64{"crew": 8, "power": 0}}
	c.SetScorer(c.Seed.Scorer())
	c.AddRoom(NewRoom(catalogtest.Part(t, cat, "hub"), geom.Identity()))

	total, lines := c.ComputeErrorAgainstSeedDetailed()
	if total != c.ComputeErrorAgainstSeed() {
		t.Errorf("detailed total %v != %v", total, c.ComputeErrorAgainstSeed())
	}
	if len(lines) != 2 {
		t.Errorf("breakdown has %d lines, want 2", len(lines))
	}

	c.SetScorer(nil)
	if c.ComputeErrorAgainstSeed() != 0 {
		t.Error("nil scorer should report zero error")
	}
}

func TestOpenMountPointsOrdered(t *testing.T) {
	cat, c := newFixture(t)
	hub := catalogtest.Part(t, cat, "hub")
	c.AddRoom(NewRoom(hub, geom.Translate(geom.V(20, 0, 0))))
	c.AddRoom(NewRoom(hub, geom.Identity()))

	open := c.OpenMountPoints()
	if len(open) != 8 {
		t.Fatalf("OpenMountPoints() = %d, want 8", len(open))
	}
	for i := 1; i < len(open); i++ {
		if open[i-1].Owner().ID() > open[i].Owner().ID() {
			t.Fatalf("open mounts not ordered by room ID at %d", i)
		}
	}
	if open[0].Socket().Name != "north" {
		t.Errorf("first open mount = %s, want north", open[0].Socket().Name)
	}
	if _, ok := c.Bounds(); !ok {
		t.Error("Bounds() reported empty construction")
	}
}

func TestSetTransformWhileOwned(t *testing.T) {
	cat, c := newFixture(t)
	r := NewRoom(catalogtest.Part(t, cat, "cap"), geom.Identity())
	c.AddRoom(r)
	if err := r.SetTransform(geom.Translate(geom.V(1, 0, 0))); !errors.Is(err, ErrRoomOwned) {
		t.Errorf("SetTransform on owned room error = %v, want ErrRoomOwned", err)
	}
	if err := r.SetID(5); !errors.Is(err, ErrRoomOwned) {
		t.Errorf("SetID on owned room error = %v, want ErrRoomOwned", err)
	}
}
