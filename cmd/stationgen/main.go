package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lawnchairsociety/stationgen/internal/catalog"
	"github.com/lawnchairsociety/stationgen/internal/config"
	"github.com/lawnchairsociety/stationgen/internal/construction"
	"github.com/lawnchairsociety/stationgen/internal/database"
	"github.com/lawnchairsociety/stationgen/internal/export"
	"github.com/lawnchairsociety/stationgen/internal/generator"
	"github.com/lawnchairsociety/stationgen/internal/geom"
	"github.com/lawnchairsociety/stationgen/internal/logger"
	"github.com/lawnchairsociety/stationgen/internal/mount"
	"github.com/lawnchairsociety/stationgen/internal/persistence"
	"github.com/lawnchairsociety/stationgen/internal/stream"
)

type flags struct {
	seed      int64
	seedPart  string
	steps     int
	catalog   string
	resume    string
	out       string
	stl       string
	preview   string
	serve     bool
	hold      bool
	noSave    bool
	noIndex   bool
	breakdown bool
}

func main() {
	configFile := flag.String("config", "data/stationgen.yaml", "Path to config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")

	var f flags
	flag.Int64Var(&f.seed, "seed", 0, "Generation seed (default: config value, or random when that is 0)")
	flag.StringVar(&f.seedPart, "part", "", "Seed part name or fragment (default: config value, else the largest part)")
	flag.IntVar(&f.steps, "steps", -1, "Growth steps (default: config value)")
	flag.StringVar(&f.catalog, "catalog", "", "Path to part catalog (default: config value)")
	flag.StringVar(&f.resume, "resume", "", "Continue generating from a saved snapshot")
	flag.StringVar(&f.out, "out", "", "Snapshot path (default: <snapshot dir>/<id>.yaml)")
	flag.StringVar(&f.stl, "stl", "", "Also export the construction as binary STL to this path")
	flag.StringVar(&f.preview, "preview", "", "Export a single part as STL and exit")
	flag.BoolVar(&f.serve, "serve", false, "Stream placements to WebSocket viewers")
	flag.BoolVar(&f.hold, "hold", false, "Keep the viewer stream up after generation until interrupted")
	flag.BoolVar(&f.noSave, "no-save", false, "Do not write a snapshot")
	flag.BoolVar(&f.noIndex, "no-index", false, "Do not record the construction in the database")
	flag.BoolVar(&f.breakdown, "breakdown", false, "Print the per-resource requirement error")
	flag.Parse()

	logConfig, _ := logger.LoadConfig(*loggingConfig)
	logger.Initialize(logConfig)

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to parse config, using defaults", "path", *configFile, "error", err)
	}
	applyFlags(cfg, f)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	cat, err := catalog.Load(cfg.Catalog.Path, cfg.Catalog.Validate)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	logger.Info("Catalog loaded", "path", cfg.Catalog.Path, "parts", cat.Len(), "digest", cat.Digest())

	if f.preview != "" {
		if err := preview(cat, cfg, f); err != nil {
			log.Fatalf("Preview failed: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cat, cfg, f); err != nil {
		log.Fatalf("Generation failed: %v", err)
	}
}

func applyFlags(cfg *config.Config, f flags) {
	g := &cfg.Generation
	if f.seed != 0 {
		g.Seed = f.seed
	}
	if g.Seed == 0 {
		g.Seed = time.Now().UnixNano()
		logger.Info("Generation seed selected", "seed", g.Seed, "random", true)
	}
	if f.seedPart != "" {
		g.SeedPart = f.seedPart
	}
	if f.steps >= 0 {
		g.GrowthSteps = f.steps
	}
	if f.catalog != "" {
		cfg.Catalog.Path = f.catalog
	}
	if f.serve {
		cfg.Stream.Enabled = true
	}
}

func preview(cat *catalog.Catalog, cfg *config.Config, f flags) error {
	part, err := cat.FindByName(f.preview)
	if err != nil {
		return err
	}
	c, err := export.Preview(cat, part)
	if err != nil {
		return err
	}
	path := f.stl
	if path == "" {
		path = part.Name + ".stl"
	}
	n, err := export.SaveSTL(c, path, exportOptions(cfg))
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d cells, %d sockets, %d triangles -> %s\n",
		part.Name, part.Size(), len(part.Sockets), n, path)
	return nil
}

func exportOptions(cfg *config.Config) export.Options {
	return export.Options{MeshCells: cfg.Export.MeshCells, GridSize: cfg.Export.GridSize}
}

// newConstruction resumes from a snapshot or places the seed part.
func newConstruction(cat *catalog.Catalog, cfg *config.Config, resume string) (*construction.Construction, error) {
	if resume != "" {
		c, err := persistence.Load(resume, cat)
		if err != nil {
			return nil, err
		}
		logger.Info("Resumed construction", "path", resume, "id", c.ID, "rooms", c.RoomCount())
		return c, nil
	}

	var part *catalog.Part
	if cfg.Generation.SeedPart != "" {
		p, err := cat.FindByName(cfg.Generation.SeedPart)
		if err != nil {
			return nil, err
		}
		part = p
	} else {
		bySize := cat.SortedBySize()
		if len(bySize) == 0 {
			return nil, errors.New("catalog has no parts")
		}
		part = bySize[len(bySize)-1]
	}

	c := construction.New(cat, cfg.Generation.SeedValue())
	if err := c.AddRoom(construction.NewRoom(part, geom.Identity())); err != nil {
		return nil, err
	}
	logger.Info("Seed room placed", "part", part.Name, "id", c.ID, "seed", c.Seed.Value)
	return c, nil
}

func run(ctx context.Context, cat *catalog.Catalog, cfg *config.Config, f flags) error {
	c, err := newConstruction(cat, cfg, f.resume)
	if err != nil {
		return err
	}

	opts, err := cfg.Generation.Options()
	if err != nil {
		return err
	}
	gen, err := generator.New(c, mount.NewMatcher(cat, cfg.Generation.MatcherConfig()), opts)
	if err != nil {
		return err
	}

	var hub *stream.Hub
	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()
	serveDone := make(chan error, 1)
	if cfg.Stream.Enabled {
		hub = stream.NewHub(cfg.Stream)
		for _, r := range c.Rooms() {
			hub.PublishRoom(r)
		}
		gen.OnCommit = hub.PublishRoom
		go func() { serveDone <- hub.ListenAndServe(serveCtx, cfg.Stream.Address) }()
	}

	outcome, err := generator.NewDriver(gen, cfg.Generation.DriverConfig()).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err != nil {
		logger.Warning("Generation interrupted, keeping partial construction", "rooms", c.RoomCount())
	}
	if hub != nil {
		hub.PublishOutcome(outcome)
	}

	snapshotPath := ""
	if !f.noSave {
		snapshotPath = f.out
		if snapshotPath == "" {
			name := c.ID.String() + ".yaml"
			if cfg.Snapshot.Compress {
				name += ".zst"
			}
			snapshotPath = filepath.Join(cfg.Snapshot.Dir, name)
		}
		if err := persistence.Save(c, snapshotPath); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		logger.Info("Snapshot saved", "path", snapshotPath)
	}

	if !f.noIndex {
		if err := index(cfg.Database, c, outcome.Reason, snapshotPath); err != nil {
			logger.Error("Failed to record construction", "error", err)
		}
	}

	if f.stl != "" {
		if _, err := export.SaveSTL(c, f.stl, exportOptions(cfg)); err != nil {
			return fmt.Errorf("failed to export mesh: %w", err)
		}
	}

	printSummary(c, outcome, snapshotPath, f.breakdown)

	if hub != nil {
		if f.hold && ctx.Err() == nil {
			logger.Info("Holding viewer stream open, interrupt to exit")
			<-ctx.Done()
		}
		stopServe()
		if err := <-serveDone; err != nil {
			return fmt.Errorf("viewer stream: %w", err)
		}
	}
	return nil
}

func index(dbCfg database.Config, c *construction.Construction, reason, snapshotPath string) error {
	db, err := database.OpenWithConfig(dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rec, rooms := database.RecordFromConstruction(c, reason, snapshotPath)
	err = db.RecordConstruction(rec, rooms)
	if errors.Is(err, database.ErrConstructionExists) {
		// Resumed sessions keep their ID; replace the earlier record.
		if err := db.DeleteConstruction(rec.ID); err != nil {
			return err
		}
		err = db.RecordConstruction(rec, rooms)
	}
	if err != nil {
		return err
	}
	logger.Info("Construction recorded", "id", rec.ID, "driver", dbCfg.Driver)
	return nil
}

func printSummary(c *construction.Construction, o generator.Outcome, snapshotPath string, breakdown bool) {
	fmt.Printf("Construction %s\n", c.ID)
	fmt.Printf("  rooms:       %d (grown %d, closed %d)\n", o.Rooms, o.Grown, o.Closed)
	fmt.Printf("  open mounts: %d\n", o.OpenMounts)
	if o.NeverClosable > 0 {
		fmt.Printf("  unclosable:  %d\n", o.NeverClosable)
	}
	fmt.Printf("  result:      %s in %s\n", o.Reason, o.Duration.Round(time.Millisecond))
	if bounds, ok := c.Bounds(); ok {
		fmt.Printf("  bounds:      %v\n", bounds)
	}
	errTotal, lines := c.ComputeErrorAgainstSeedDetailed()
	fmt.Printf("  seed error:  %.3f\n", errTotal)
	if breakdown {
		for _, l := range lines {
			fmt.Printf("    %s\n", l)
		}
	}
	if snapshotPath != "" {
		fmt.Printf("  snapshot:    %s\n", snapshotPath)
	}
}
