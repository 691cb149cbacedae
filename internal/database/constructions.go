package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lawnchairsociety/stationgen/internal/construction"
	"github.com/lawnchairsociety/stationgen/internal/geom"
)

var (
	ErrConstructionExists   = errors.New("database: construction already recorded")
	ErrConstructionNotFound = errors.New("database: construction not found")
)

// ConstructionRecord is the index row of one generated construction.
type ConstructionRecord struct {
	ID            string
	Seed          int64
	CatalogDigest string
	RoomCount     int
	OpenMounts    int
	Reason        string
	SeedError     float64
	SnapshotPath  string
	CreatedAt     time.Time
}

// RoomRecord is the index row of one placed room.
type RoomRecord struct {
	RoomID      int
	Part        string
	Rotation    string
	Translation geom.Vec3
	OpenMounts  int
}

// RecordFromConstruction builds the index rows for c.
func RecordFromConstruction(c *construction.Construction, reason, snapshotPath string) (ConstructionRecord, []RoomRecord) {
	rec := ConstructionRecord{
		ID:            c.ID.String(),
		Seed:          c.Seed.Value,
		CatalogDigest: c.Catalog().Digest(),
		RoomCount:     c.RoomCount(),
		OpenMounts:    c.OpenMountCount(),
		Reason:        reason,
		SeedError:     c.ComputeErrorAgainstSeed(),
		SnapshotPath:  snapshotPath,
		CreatedAt:     time.Now().UTC(),
	}
	var rooms []RoomRecord
	for _, r := range c.Rooms() {
		t := r.Transform()
		rooms = append(rooms, RoomRecord{
			RoomID:      r.ID(),
			Part:        r.Part().Name,
			Rotation:    fmt.Sprint(t.Rotation),
			Translation: t.Translation,
			OpenMounts:  r.OpenMountCount(),
		})
	}
	return rec, rooms
}

// RecordConstruction stores a construction and its rooms in one
// transaction.
func (d *Database) RecordConstruction(rec ConstructionRecord, rooms []RoomRecord) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(d.q(`
		INSERT INTO constructions (id, seed, catalog_digest, room_count, open_mounts, reason, seed_error, snapshot_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), rec.ID, rec.Seed, rec.CatalogDigest, rec.RoomCount, rec.OpenMounts, rec.Reason, rec.SeedError, rec.SnapshotPath, rec.CreatedAt)
	if err != nil {
		if d.dialect.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrConstructionExists, rec.ID)
		}
		return err
	}

	stmt, err := tx.Prepare(d.q(`
		INSERT INTO construction_rooms (construction_id, room_id, part, rotation, tx, ty, tz, open_mounts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rooms {
		if _, err := stmt.Exec(rec.ID, r.RoomID, r.Part, r.Rotation,
			r.Translation.X, r.Translation.Y, r.Translation.Z, r.OpenMounts); err != nil {
			return fmt.Errorf("failed to record room %d: %w", r.RoomID, err)
		}
	}
	return tx.Commit()
}

const constructionColumns = `id, seed, catalog_digest, room_count, open_mounts, reason, seed_error, snapshot_path, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanConstruction(s scanner) (ConstructionRecord, error) {
	var rec ConstructionRecord
	err := s.Scan(&rec.ID, &rec.Seed, &rec.CatalogDigest, &rec.RoomCount, &rec.OpenMounts,
		&rec.Reason, &rec.SeedError, &rec.SnapshotPath, &rec.CreatedAt)
	return rec, err
}

// GetConstruction returns the record with the given id.
func (d *Database) GetConstruction(id string) (ConstructionRecord, error) {
	row := d.db.QueryRow(d.q(`SELECT `+constructionColumns+` FROM constructions WHERE id = ?`), id)
	rec, err := scanConstruction(row)
	if err == sql.ErrNoRows {
		return rec, fmt.Errorf("%w: %s", ErrConstructionNotFound, id)
	}
	return rec, err
}

// ListConstructions returns up to limit records, newest first. A limit of
// zero or less returns all of them.
func (d *Database) ListConstructions(limit int) ([]ConstructionRecord, error) {
	query := `SELECT ` + constructionColumns + ` FROM constructions ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := d.db.Query(d.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConstructionRecord
	for rows.Next() {
		rec, err := scanConstruction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ConstructionRooms returns the rooms of a construction ordered by room id.
func (d *Database) ConstructionRooms(id string) ([]RoomRecord, error) {
	rows, err := d.db.Query(d.q(`
		SELECT room_id, part, rotation, tx, ty, tz, open_mounts
		FROM construction_rooms
		WHERE construction_id = ?
		ORDER BY room_id
	`), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoomRecord
	for rows.Next() {
		var r RoomRecord
		if err := rows.Scan(&r.RoomID, &r.Part, &r.Rotation,
			&r.Translation.X, &r.Translation.Y, &r.Translation.Z, &r.OpenMounts); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PartUsage counts placed rooms per part across every recorded
// construction.
func (d *Database) PartUsage() (map[string]int, error) {
	rows, err := d.db.Query(`SELECT part, COUNT(*) FROM construction_rooms GROUP BY part`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var part string
		var n int
		if err := rows.Scan(&part, &n); err != nil {
			return nil, err
		}
		out[part] = n
	}
	return out, rows.Err()
}

// DeleteConstruction removes a construction and its rooms.
func (d *Database) DeleteConstruction(id string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(d.q(`DELETE FROM construction_rooms WHERE construction_id = ?`), id); err != nil {
		return err
	}
	res, err := tx.Exec(d.q(`DELETE FROM constructions WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrConstructionNotFound, id)
	}
	return tx.Commit()
}
