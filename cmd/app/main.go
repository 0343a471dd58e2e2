package main

import (
	"flag"
	"log"
	"os"

	"TradeMood/internal/di"
	"TradeMood/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s cadence=%s instruments=%d", cfg.Environment, cfg.Pipeline.Cadence, len(cfg.Instruments))

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("clickhouse: connected and schema ready - db: %s\n", cfg.ClickHouse.Database)
	log.Printf("kafka: brokers=%v signals=%s trades=%s", cfg.Kafka.Brokers, cfg.Kafka.SignalTopic, cfg.Kafka.TradeTopic)

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
