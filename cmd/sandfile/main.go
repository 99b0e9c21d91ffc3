package main

import (
	"flag"
	"log"

	"github.com/AnishMulay/sandfile/internal/config"
	"github.com/AnishMulay/sandfile/servers/simple"
)

func main() {
	var (
		configPath = flag.String("config", "./sandfile.yaml", "Config file (written with defaults if missing)")
		nodeID     = flag.String("node-id", "", "Node ID")
		listen     = flag.String("listen", "", "Listen address")
		dataDir    = flag.String("data-dir", "", "Data directory")
		transport  = flag.String("transport", "", "Transport (grpc|http)")
		backend    = flag.String("backend", "", "Storage backend (local|memory|minio)")
		logLevel   = flag.String("log-level", "", "Minimum log level")
		maxFiles   = flag.Int("max-files", 0, "Capacity of the file table")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags win over the file and the environment.
	if *nodeID != "" {
		cfg.Node.ID = *nodeID
	}
	if *dataDir != "" {
		cfg.Node.DataDir = *dataDir
		cfg.Storage.BaseDir = ""
		cfg.Log.Dir = ""
	}
	if *listen != "" {
		cfg.Transport.Listen = *listen
	}
	if *transport != "" {
		cfg.Transport.Type = *transport
	}
	if *backend != "" {
		cfg.Storage.Type = *backend
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *maxFiles > 0 {
		cfg.Table.MaxFiles = *maxFiles
	}
	cfg.FillDerived()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	server, err := simple.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}
	if err := server.Run(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
