package main

import (
	"context"
	"flag"
	"log"
	"os"

	"FinRisk/internal/di"
	"FinRisk/pkg/config"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	// A missing .env is normal outside local development.
	_ = godotenv.Load(*envFile)

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("env=%s storage=%s kafka=%t queue=%t", cfg.Environment, cfg.Storage.Backend, cfg.Kafka.Enabled, cfg.Queue.Enabled)

	err = app.Run(context.Background())
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
