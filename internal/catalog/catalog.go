// Package catalog holds the immutable set of part definitions a construction
// is built from. Parts and sockets live in an arena owned by the Catalog and
// are addressed by small integer handles.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lawnchairsociety/stationgen/internal/geom"
	"github.com/samber/lo"
)

var (
	ErrUnknownPart    = errors.New("catalog: unknown part")
	ErrUnknownSocket  = errors.New("catalog: unknown socket")
	ErrDuplicatePart  = errors.New("catalog: duplicate part name")
	ErrInvalidCatalog = errors.New("catalog: invalid catalog")
)

// PartID is the arena index of a part.
type PartID int

// SocketID is the arena index of a socket. Socket IDs are unique across the
// whole catalog, not just within one part.
type SocketID int

// AdjacencyRule restricts which sockets may be joined together. Rules are
// ordered from least to most strict.
type AdjacencyRule int

const (
	RuleAny AdjacencyRule = iota
	// RuleExcludeSameInstance forbids joining a socket to another
	// instance of the very same socket definition.
	RuleExcludeSameInstance
	// RuleExcludeSamePartKind forbids joining two sockets of the same part.
	RuleExcludeSamePartKind
)

func (r AdjacencyRule) String() string {
	switch r {
	case RuleAny:
		return "any"
	case RuleExcludeSameInstance:
		return "exclude_same_instance"
	case RuleExcludeSamePartKind:
		return "exclude_same_part_kind"
	default:
		return "unknown"
	}
}

// ParseAdjacencyRule parses a rule name. The empty string means RuleAny.
func ParseAdjacencyRule(s string) (AdjacencyRule, error) {
	switch strings.ToLower(s) {
	case "", "any":
		return RuleAny, nil
	case "exclude_same_instance":
		return RuleExcludeSameInstance, nil
	case "exclude_same_part_kind":
		return RuleExcludeSamePartKind, nil
	}
	return RuleAny, fmt.Errorf("%w: unknown adjacency rule %q", ErrInvalidCatalog, s)
}

// Stricter returns the stricter of two rules.
func Stricter(a, b AdjacencyRule) AdjacencyRule {
	return max(a, b)
}

// AnchorBlock is one cell of a socket. Anchor lies inside the part and
// Direction points out of it, towards the cell the partner's anchor must
// occupy.
type AnchorBlock struct {
	Piece     string
	Direction geom.Direction
	Anchor    geom.Vec3
}

// MountLocation is the cell just outside the part where the partner's
// matching anchor sits once joined.
func (b AnchorBlock) MountLocation() geom.Vec3 {
	return b.Anchor.Add(b.Direction.Vector())
}

// ReservedSpace is a region a part needs kept clear without occupying it.
type ReservedSpace struct {
	Box      geom.Box
	Shared   bool
	Optional bool
}

// Socket is a typed attachment point on a part.
type Socket struct {
	ID     SocketID
	Part   PartID
	Type   string
	Name   string
	Rule   AdjacencyRule
	Blocks []AnchorBlock

	pieces  []string
	byPiece map[string][]AnchorBlock
}

// Pieces returns the distinct piece kinds of the socket's blocks, sorted.
func (s *Socket) Pieces() []string {
	return s.pieces
}

// BlocksOf returns the blocks of the given piece kind.
func (s *Socket) BlocksOf(piece string) []AnchorBlock {
	return s.byPiece[piece]
}

// Key identifies the socket within its part.
func (s *Socket) Key() string {
	return s.Type + ":" + s.Name
}

// Part is an immutable prefabricated building block.
type Part struct {
	ID        PartID
	Name      string
	Cells     []geom.Vec3
	Box       geom.Box
	Reserved  []ReservedSpace
	Sockets   []*Socket
	Resources map[string]float64

	cellSet map[geom.Vec3]struct{}
}

// Occupies reports whether the part fills the local cell.
func (p *Part) Occupies(local geom.Vec3) bool {
	_, ok := p.cellSet[local]
	return ok
}

// Size is the number of occupied cells.
func (p *Part) Size() int {
	return len(p.Cells)
}

// Socket looks up a socket by type and name.
func (p *Part) Socket(typ, name string) (*Socket, bool) {
	for _, s := range p.Sockets {
		if s.Type == typ && s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// SocketsOfType returns the part's sockets of the given type in definition
// order.
func (p *Part) SocketsOfType(typ string) []*Socket {
	return lo.Filter(p.Sockets, func(s *Socket, _ int) bool { return s.Type == typ })
}

func (p *Part) String() string {
	return p.Name
}

// PartFilter decides whether a part may be used by a generation session.
// A nil filter accepts every part.
type PartFilter func(*Part) bool

// Accepts reports whether the filter admits p.
func (f PartFilter) Accepts(p *Part) bool {
	return f == nil || f(p)
}

// ExcludeParts returns a filter rejecting the named parts.
func ExcludeParts(names ...string) PartFilter {
	set := lo.SliceToMap(names, func(n string) (string, struct{}) { return n, struct{}{} })
	return func(p *Part) bool {
		_, skip := set[p.Name]
		return !skip
	}
}

// Catalog is the arena of parts and sockets.
type Catalog struct {
	parts   []*Part
	sockets []*Socket
	byName  map[string]*Part
	bySize  []*Part
	digest  string
}

// Len returns the number of parts.
func (c *Catalog) Len() int {
	return len(c.parts)
}

// Parts returns all parts in ID order. The slice must not be modified.
func (c *Catalog) Parts() []*Part {
	return c.parts
}

// Part returns the part with the given ID, or nil.
func (c *Catalog) Part(id PartID) *Part {
	if id < 0 || int(id) >= len(c.parts) {
		return nil
	}
	return c.parts[id]
}

// Socket returns the socket with the given ID, or nil.
func (c *Catalog) Socket(id SocketID) *Socket {
	if id < 0 || int(id) >= len(c.sockets) {
		return nil
	}
	return c.sockets[id]
}

// PartByName returns the part with exactly the given name.
func (c *Catalog) PartByName(name string) (*Part, error) {
	p, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPart, name)
	}
	return p, nil
}

// FindByName resolves a part from user input. An exact name wins; otherwise
// the first part (in ID order) whose name contains the fragment, ignoring
// case, is returned.
func (c *Catalog) FindByName(fragment string) (*Part, error) {
	if p, ok := c.byName[fragment]; ok {
		return p, nil
	}
	needle := strings.ToLower(fragment)
	p, ok := lo.Find(c.parts, func(p *Part) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	})
	if !ok {
		return nil, fmt.Errorf("%w: no part matches %q", ErrUnknownPart, fragment)
	}
	return p, nil
}

// SortedBySize returns parts ordered by occupied cell count, smallest first.
// Parts of equal size keep ID order.
func (c *Catalog) SortedBySize() []*Part {
	return c.bySize
}

// Filter returns the parts accepted by f, in ID order.
func (c *Catalog) Filter(f PartFilter) []*Part {
	if f == nil {
		return c.parts
	}
	return lo.Filter(c.parts, func(p *Part, _ int) bool { return f(p) })
}

// Digest is a hex sha256 over the canonical part definitions. Two catalogs
// with the same digest produce identical generations.
func (c *Catalog) Digest() string {
	return c.digest
}

func (c *Catalog) index() {
	c.byName = make(map[string]*Part, len(c.parts))
	for _, p := range c.parts {
		c.byName[p.Name] = p
	}
	c.bySize = append([]*Part(nil), c.parts...)
	sort.SliceStable(c.bySize, func(i, j int) bool {
		return c.bySize[i].Size() < c.bySize[j].Size()
	})
}
