// Package persistence saves and restores constructions as YAML snapshots.
// A path ending in ".zst" is written and read zstd-compressed.
package persistence

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/lawnchairsociety/stationgen/internal/catalog"
	"github.com/lawnchairsociety/stationgen/internal/construction"
	"github.com/lawnchairsociety/stationgen/internal/geom"
	"github.com/lawnchairsociety/stationgen/internal/logger"
	"github.com/lawnchairsociety/stationgen/internal/seed"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

var (
	ErrCatalogMismatch = errors.New("persistence: snapshot does not match catalog")
	ErrInvalidSnapshot = errors.New("persistence: invalid snapshot")
	ErrBrokenLink      = errors.New("persistence: recorded attachment not restored")
)

// SnapshotData is the serialized form of a construction.
type SnapshotData struct {
	ID            string     `yaml:"id"`
	Seed          seed.Seed  `yaml:"seed"`
	CatalogDigest string     `yaml:"catalog_digest"`
	SavedAt       time.Time  `yaml:"saved_at"`
	Rooms         []RoomData `yaml:"rooms"`
}

// RoomData is one serialized room.
type RoomData struct {
	ID          int       `yaml:"id"`
	Part        string    `yaml:"part"`
	Rotation    [3][3]int `yaml:"rotation,flow"`
	Translation [3]int    `yaml:"translation,flow"`
	// Attachments maps a socket key to the room it is joined to.
	Attachments map[string]int `yaml:"attachments,omitempty"`
}

// Snapshot captures c.
func Snapshot(c *construction.Construction) SnapshotData {
	return SnapshotData{
		ID:            c.ID.String(),
		Seed:          c.Seed,
		CatalogDigest: c.Catalog().Digest(),
		SavedAt:       time.Now().UTC(),
		Rooms:         lo.Map(c.Rooms(), func(r *construction.Room, _ int) RoomData { return serializeRoom(r) }),
	}
}

func serializeRoom(r *construction.Room) RoomData {
	t := r.Transform()
	data := RoomData{
		ID:          r.ID(),
		Part:        r.Part().Name,
		Rotation:    t.Rotation,
		Translation: t.Translation.Array(),
	}
	for _, mp := range r.MountPoints() {
		if other := mp.AttachedTo(); other != nil {
			if data.Attachments == nil {
				data.Attachments = make(map[string]int)
			}
			data.Attachments[mp.Socket().Key()] = other.Owner().ID()
		}
	}
	return data
}

// Save writes c to filename, creating parent directories as needed.
func Save(c *construction.Construction, filename string) error {
	out, err := yaml.Marshal(Snapshot(c))
	if err != nil {
		return fmt.Errorf("failed to marshal construction: %w", err)
	}
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot dir: %w", err)
		}
	}
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	defer f.Close()

	if compressed(filename) {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		if _, err := enc.Write(out); err != nil {
			enc.Close()
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
	} else if _, err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return f.Sync()
}

// Read parses a snapshot file without building a construction.
func Read(filename string) (SnapshotData, error) {
	var data SnapshotData
	f, err := os.Open(filename)
	if err != nil {
		return data, fmt.Errorf("failed to read snapshot: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed(filename) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return data, err
		}
		defer dec.Close()
		r = dec
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return data, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("failed to parse snapshot YAML: %w", err)
	}
	return data, nil
}

// Load reads filename and rebuilds the construction against cat.
func Load(filename string, cat *catalog.Catalog) (*construction.Construction, error) {
	data, err := Read(filename)
	if err != nil {
		return nil, err
	}
	return Restore(data, cat)
}

// Restore rebuilds a construction from data. Rooms are placed first with
// their recorded identities; a second pass checks that every recorded
// attachment was re-established.
func Restore(data SnapshotData, cat *catalog.Catalog) (*construction.Construction, error) {
	if data.CatalogDigest != "" && data.CatalogDigest != cat.Digest() {
		logger.Warning("Snapshot was saved with a different catalog",
			"snapshot_digest", data.CatalogDigest, "catalog_digest", cat.Digest())
	}

	c := construction.New(cat, data.Seed)
	if data.ID != "" {
		id, err := uuid.Parse(data.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: id: %v", ErrInvalidSnapshot, err)
		}
		c.ID = id
	}

	for _, rd := range data.Rooms {
		part, err := cat.PartByName(rd.Part)
		if err != nil {
			return nil, fmt.Errorf("%w: room %d: %w", ErrCatalogMismatch, rd.ID, err)
		}
		rot := geom.Rotation(rd.Rotation)
		if !slices.Contains(geom.AllRotations(), rot) {
			return nil, fmt.Errorf("%w: room %d has a non-cube rotation", ErrInvalidSnapshot, rd.ID)
		}
		room := construction.NewRoom(part, geom.NewTransform(rot, geom.FromArray(rd.Translation)))
		if err := room.SetID(rd.ID); err != nil {
			return nil, err
		}
		if err := c.AddRoom(room); err != nil {
			return nil, fmt.Errorf("%w: room %d: %w", ErrInvalidSnapshot, rd.ID, err)
		}
	}

	if err := verifyLinks(c, data.Rooms); err != nil {
		return nil, err
	}
	return c, nil
}

func verifyLinks(c *construction.Construction, rooms []RoomData) error {
	for _, rd := range rooms {
		room, _ := c.Room(rd.ID)
		for key, want := range rd.Attachments {
			typ, name, _ := strings.Cut(key, ":")
			s, ok := room.Part().Socket(typ, name)
			if !ok {
				return fmt.Errorf("%w: room %d has no socket %s", ErrCatalogMismatch, rd.ID, key)
			}
			other := room.MountPoint(s).AttachedTo()
			if other == nil || other.Owner().ID() != want {
				return fmt.Errorf("%w: room %d socket %s to room %d", ErrBrokenLink, rd.ID, key, want)
			}
		}
	}
	return nil
}

// Exists reports whether a snapshot file exists.
func Exists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

func compressed(filename string) bool {
	return strings.HasSuffix(filename, ".zst")
}
