package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/lawnchairsociety/stationgen/internal/catalog"
	"github.com/lawnchairsociety/stationgen/internal/persistence"
)

func main() {
	inputFile := flag.String("input", "", "Path to a saved construction (.yaml or .yaml.zst)")
	catalogFile := flag.String("catalog", "data/parts.yaml", "Path to the part catalog the construction was built from")
	layer := flag.Int("layer", 0, "Y layer to display")
	all := flag.Bool("all", false, "Display every layer")
	outputFile := flag.String("output", "", "Output file (empty for stdout)")
	showLegend := flag.Bool("legend", true, "Show legend")
	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required")
		os.Exit(2)
	}

	cat, err := catalog.Load(*catalogFile, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading catalog: %v\n", err)
		os.Exit(1)
	}
	c, err := persistence.Load(*inputFile, cat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading construction: %v\n", err)
		os.Exit(1)
	}

	var output strings.Builder
	renderConstruction(&output, c, *layer, *all)
	if *showLegend {
		output.WriteString(legend())
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output.String()), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Map written to %s\n", *outputFile)
	} else {
		fmt.Print(output.String())
	}
}
