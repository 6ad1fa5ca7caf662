package main

import (
	"flag"
	"log"
	"os"

	"VolSurf/internal/di"
	"VolSurf/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	seedDemo := flag.Bool("seed-demo", false, "load the built-in demo quotes at startup")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s duplicate_policy=%s", cfg.Environment, cfg.Surface.DuplicatePolicy)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	app.SeedDemo(*seedDemo)

	if cfg.ClickHouse.Enabled {
		log.Printf("clickhouse: schema ready db=%s table=%s", cfg.ClickHouse.Database, cfg.ClickHouse.Table)
	}
	if cfg.Kafka.Enabled {
		log.Printf("kafka: brokers=%v samples=%s grids=%s", cfg.Kafka.Brokers, cfg.Kafka.SamplesTopic, cfg.Kafka.GridsTopic)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
