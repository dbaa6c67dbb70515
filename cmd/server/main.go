package main

import (
	"flag"
	"log"
	"os"
	"time"

	"route_planner/pkg/api"
	"route_planner/pkg/ch"
	"route_planner/pkg/config"
	"route_planner/pkg/routing"
)

func main() {
	graphPath := flag.String("graph", "graph.bin", "Path to preprocessed hierarchy binary")
	configPath := flag.String("config", "", "Optional TOML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	sc := cfg.Server
	if *addr != "" {
		sc.Addr = *addr
	}
	if *corsOrigin != "" {
		sc.CORSOrigin = *corsOrigin
	}

	start := time.Now()

	// Load hierarchy.
	log.Printf("Loading hierarchy from %s...", *graphPath)
	h, err := ch.ReadBinary(*graphPath)
	if err != nil {
		log.Fatalf("Failed to load hierarchy: %v", err)
	}
	log.Printf("Loaded: %d nodes, %d fwd edges, %d bwd edges",
		h.NumNodes, len(h.FwdHead), len(h.BwdHead))

	// Build routing engine (includes the R-tree spatial index).
	log.Println("Building R-tree spatial index...")
	engine := routing.NewEngine(h, routing.WithStallOnDemand(sc.StallOnDemand))

	loadTime := time.Since(start)
	log.Printf("Ready in %s", loadTime.Round(time.Millisecond))

	// Setup HTTP server.
	srvCfg := api.ServerConfig{
		Addr:          sc.Addr,
		ReadTimeout:   sc.ReadTimeout.Duration,
		WriteTimeout:  sc.WriteTimeout.Duration,
		MaxConcurrent: sc.MaxConcurrent,
		CORSOrigin:    sc.CORSOrigin,
	}

	stats := api.StatsResponse{
		NumNodes:    h.NumNodes,
		NumFwdEdges: len(h.FwdHead),
		NumBwdEdges: len(h.BwdHead),
		Shortcuts:   h.ShortcutCount(),
	}

	handlers := api.NewHandlers(engine, engine, stats)
	srv := api.NewServer(srvCfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}
