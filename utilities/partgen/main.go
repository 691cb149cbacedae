package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lawnchairsociety/stationgen/internal/catalog"
)

func main() {
	out := flag.String("out", "data/parts.yaml", "Output catalog path")
	socketType := flag.String("socket", "Corridor", "Socket type shared by every generated part")
	hubs := flag.String("hubs", "3,5", "Comma separated hub edge lengths (odd)")
	corridors := flag.String("corridors", "1,3,5", "Comma separated corridor lengths")
	shafts := flag.String("shafts", "3", "Comma separated shaft heights")
	flag.Parse()

	o := Options{SocketType: *socketType}
	var err error
	if o.HubSizes, err = parseSizes(*hubs, true); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -hubs: %v\n", err)
		os.Exit(1)
	}
	if o.CorridorLengths, err = parseSizes(*corridors, false); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -corridors: %v\n", err)
		os.Exit(1)
	}
	if o.ShaftHeights, err = parseSizes(*shafts, false); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -shafts: %v\n", err)
		os.Exit(1)
	}

	families := Generate(o)
	cat, err := catalog.New(Flatten(families))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: generated catalog is invalid: %v\n", err)
		os.Exit(1)
	}
	if err := WriteCatalogFile(*out, families, o); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d parts to %s (digest %s)\n", cat.Len(), *out, cat.Digest())
}

// parseSizes parses a list like "1,3,5". Sizes must be positive, and odd
// when odd is set.
func parseSizes(s string, odd bool) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []int
	for _, field := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("invalid size %q: %w", field, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("size %d must be >= 1", n)
		}
		if odd && n%2 == 0 {
			return nil, fmt.Errorf("size %d must be odd", n)
		}
		out = append(out, n)
	}
	return out, nil
}
