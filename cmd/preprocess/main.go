package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"route_planner/pkg/ch"
	"route_planner/pkg/config"
	"route_planner/pkg/graph"
	osmparser "route_planner/pkg/osm"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "graph.bin", "Output binary hierarchy file path")
	configPath := flag.String("config", "", "Optional TOML config file")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 1.15,103.6,1.48,104.1)")
	workers := flag.Int("workers", 0, "Contraction workers (0 = config/NumCPU)")
	seed := flag.Int64("seed", 0, "Contraction order seed (0 = config)")
	order := flag.String("order", "", "Contraction order: random or edge_difference (default from config)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf> [--output graph.bin] [--config file.toml] [--bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	pc := cfg.Preprocess
	if *workers > 0 {
		pc.Workers = *workers
	}
	if *seed != 0 {
		pc.Seed = *seed
	}
	if *order != "" {
		pc.Order = *order
	}

	// Parse bbox option: flag first, then config.
	var opts osmparser.ParseOptions
	if *bbox != "" {
		var minLat, minLng, maxLat, maxLng float64
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
			log.Fatalf("Invalid bbox format (expected minLat,minLng,maxLat,maxLng): %v", err)
		}
		opts.BBox = osmparser.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
	} else {
		opts.BBox = osmparser.BBox{MinLat: pc.MinLat, MaxLat: pc.MaxLat, MinLng: pc.MinLng, MaxLng: pc.MaxLng}
	}
	if !opts.BBox.IsZero() {
		log.Printf("Using bounding box filter: lat [%.4f, %.4f], lng [%.4f, %.4f]",
			opts.BBox.MinLat, opts.BBox.MaxLat, opts.BBox.MinLng, opts.BBox.MaxLng)
	}

	start := time.Now()

	// Step 1: Parse OSM data.
	log.Println("Opening OSM file...")
	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	defer f.Close()

	log.Println("Parsing OSM data...")
	parseResult, err := osmparser.Parse(context.Background(), f, opts)
	if err != nil {
		log.Fatalf("Failed to parse OSM data: %v", err)
	}
	log.Printf("Parsed %d edges, %d nodes", len(parseResult.Edges), len(parseResult.NodeLat))

	// Step 2: Build graph.
	log.Println("Building graph...")
	g := osmparser.BuildGraph(parseResult)
	log.Printf("Graph: %d nodes, %d edges", g.NumNodes, g.NumEdges)

	// Step 3: Extract largest connected component.
	log.Println("Extracting largest connected component...")
	componentNodes := graph.LargestComponent(g)
	log.Printf("Largest component: %d nodes (%.1f%%)", len(componentNodes), float64(len(componentNodes))/float64(g.NumNodes)*100)
	g = graph.FilterToComponent(g, componentNodes)
	log.Printf("Filtered graph: %d nodes, %d edges", g.NumNodes, g.NumEdges)

	// Step 4: Build the hierarchy.
	log.Println("Running Contraction Hierarchies...")
	buildOpts := []ch.Option{ch.WithWorkers(pc.Workers)}
	switch pc.Order {
	case "", "random":
		buildOpts = append(buildOpts, ch.WithSeed(pc.Seed))
	case "edge_difference":
		buildOpts = append(buildOpts, ch.WithOrder(ch.EdgeDifferenceOrder{}))
	default:
		log.Fatalf("Unknown order strategy %q (want random or edge_difference)", pc.Order)
	}
	if pc.Epsilon > 0 {
		buildOpts = append(buildOpts, ch.WithEpsilon(pc.Epsilon))
	}
	if pc.MaxSettled > 0 && pc.MaxHops > 0 {
		buildOpts = append(buildOpts, ch.WithSearchLimits(pc.MaxSettled, pc.MaxHops))
	}
	h, err := ch.Build(g, buildOpts...)
	if err != nil {
		log.Fatalf("Contraction failed: %v", err)
	}
	log.Printf("CH complete: %d fwd edges, %d bwd edges, %d shortcuts", len(h.FwdHead), len(h.BwdHead), h.ShortcutCount())

	// Step 5: Serialize to binary.
	log.Printf("Writing binary to %s...", *output)
	if err := ch.WriteBinary(*output, h); err != nil {
		log.Fatalf("Failed to write binary: %v", err)
	}

	info, _ := os.Stat(*output)
	elapsed := time.Since(start)
	log.Printf("Done in %s. Output: %s (%.1f MB)", elapsed.Round(time.Second), *output, float64(info.Size())/(1024*1024))
}
