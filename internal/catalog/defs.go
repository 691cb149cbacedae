package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lawnchairsociety/stationgen/internal/geom"
)

// File is the on-disk catalog document.
type File struct {
	Parts []PartDef `yaml:"parts" json:"parts"`
}

// PartDef is the serialized form of a Part. Cells may be given explicitly,
// as a filled box, or both.
type PartDef struct {
	Name      string             `yaml:"name" json:"name"`
	Cells     [][3]int           `yaml:"cells,omitempty" json:"cells,omitempty"`
	Box       *BoxDef            `yaml:"box,omitempty" json:"box,omitempty"`
	Reserved  []ReservedDef      `yaml:"reserved,omitempty" json:"reserved,omitempty"`
	Sockets   []SocketDef        `yaml:"sockets,omitempty" json:"sockets,omitempty"`
	Resources map[string]float64 `yaml:"resources,omitempty" json:"resources,omitempty"`
}

// BoxDef is an inclusive cell range.
type BoxDef struct {
	Min [3]int `yaml:"min" json:"min"`
	Max [3]int `yaml:"max" json:"max"`
}

// ReservedDef is the serialized form of a ReservedSpace.
type ReservedDef struct {
	Min      [3]int `yaml:"min" json:"min"`
	Max      [3]int `yaml:"max" json:"max"`
	Shared   bool   `yaml:"shared,omitempty" json:"shared,omitempty"`
	Optional bool   `yaml:"optional,omitempty" json:"optional,omitempty"`
}

// SocketDef is the serialized form of a Socket.
type SocketDef struct {
	Type   string     `yaml:"type" json:"type"`
	Name   string     `yaml:"name" json:"name"`
	Rule   string     `yaml:"rule,omitempty" json:"rule,omitempty"`
	Blocks []BlockDef `yaml:"blocks" json:"blocks"`
}

// BlockDef is the serialized form of an AnchorBlock.
type BlockDef struct {
	Piece     string `yaml:"piece" json:"piece"`
	Direction string `yaml:"direction" json:"direction"`
	Anchor    [3]int `yaml:"anchor" json:"anchor"`
}

// New builds a catalog from part definitions. Part IDs follow definition
// order.
func New(defs []PartDef) (*Catalog, error) {
	c := &Catalog{}
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: part %d has no name", ErrInvalidCatalog, len(c.parts))
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePart, def.Name)
		}
		seen[def.Name] = true

		p, err := c.buildPart(def)
		if err != nil {
			return nil, fmt.Errorf("part %q: %w", def.Name, err)
		}
		c.parts = append(c.parts, p)
	}
	c.index()

	canonical, err := json.Marshal(File{Parts: defs})
	if err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}
	sum := sha256.Sum256(canonical)
	c.digest = hex.EncodeToString(sum[:])
	return c, nil
}

func (c *Catalog) buildPart(def PartDef) (*Part, error) {
	p := &Part{
		ID:        PartID(len(c.parts)),
		Name:      def.Name,
		Resources: def.Resources,
		cellSet:   make(map[geom.Vec3]struct{}),
	}
	addCell := func(v geom.Vec3) {
		if _, dup := p.cellSet[v]; dup {
			return
		}
		p.cellSet[v] = struct{}{}
		p.Cells = append(p.Cells, v)
	}
	for _, cell := range def.Cells {
		addCell(geom.FromArray(cell))
	}
	if def.Box != nil {
		b := geom.NewBox(geom.FromArray(def.Box.Min), geom.FromArray(def.Box.Max))
		for x := b.Min.X; x <= b.Max.X; x++ {
			for y := b.Min.Y; y <= b.Max.Y; y++ {
				for z := b.Min.Z; z <= b.Max.Z; z++ {
					addCell(geom.V(x, y, z))
				}
			}
		}
	}
	box, ok := geom.BoxOf(p.Cells)
	if !ok {
		return nil, fmt.Errorf("%w: no occupied cells", ErrInvalidCatalog)
	}
	p.Box = box

	for _, r := range def.Reserved {
		p.Reserved = append(p.Reserved, ReservedSpace{
			Box:      geom.NewBox(geom.FromArray(r.Min), geom.FromArray(r.Max)),
			Shared:   r.Shared,
			Optional: r.Optional,
		})
	}

	for _, sd := range def.Sockets {
		if sd.Type == "" {
			return nil, fmt.Errorf("%w: socket %q has no type", ErrInvalidCatalog, sd.Name)
		}
		if _, dup := p.Socket(sd.Type, sd.Name); dup {
			return nil, fmt.Errorf("%w: socket %s:%s defined twice", ErrInvalidCatalog, sd.Type, sd.Name)
		}
		s, err := c.buildSocket(p, sd)
		if err != nil {
			return nil, err
		}
		p.Sockets = append(p.Sockets, s)
	}
	return p, nil
}

func (c *Catalog) buildSocket(p *Part, sd SocketDef) (*Socket, error) {
	rule, err := ParseAdjacencyRule(sd.Rule)
	if err != nil {
		return nil, err
	}
	s := &Socket{
		ID:      SocketID(len(c.sockets)),
		Part:    p.ID,
		Type:    sd.Type,
		Name:    sd.Name,
		Rule:    rule,
		byPiece: make(map[string][]AnchorBlock),
	}
	for _, bd := range sd.Blocks {
		dir, err := geom.ParseDirection(bd.Direction)
		if err != nil {
			return nil, fmt.Errorf("%w: socket %s: %v", ErrInvalidCatalog, s.Key(), err)
		}
		b := AnchorBlock{Piece: bd.Piece, Direction: dir, Anchor: geom.FromArray(bd.Anchor)}
		if !p.Occupies(b.Anchor) {
			return nil, fmt.Errorf("%w: socket %s anchor %v is outside the part", ErrInvalidCatalog, s.Key(), b.Anchor)
		}
		s.Blocks = append(s.Blocks, b)
		if _, ok := s.byPiece[b.Piece]; !ok {
			s.pieces = append(s.pieces, b.Piece)
		}
		s.byPiece[b.Piece] = append(s.byPiece[b.Piece], b)
	}
	sort.Strings(s.pieces)
	c.sockets = append(c.sockets, s)
	return s, nil
}
