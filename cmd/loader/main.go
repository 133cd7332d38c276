package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rfdados/cnpj-pipeline/internal/config"
	"github.com/rfdados/cnpj-pipeline/internal/database"
	"github.com/rfdados/cnpj-pipeline/internal/ingestion"
	"github.com/rfdados/cnpj-pipeline/internal/schema"
	"github.com/rfdados/cnpj-pipeline/internal/strategy"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := schema.Validate(); err != nil {
		log.Fatalf("Invalid table specs: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resources, err := strategy.Detect()
	if err != nil {
		log.Fatalf("Failed to detect system resources: %v", err)
	}
	resources.TotalMemoryBytes = uint64(float64(resources.TotalMemoryBytes) * cfg.MaxMemoryPercent / 100)
	tier := strategy.Select(resources)
	log.Printf("Selected %s tier (batch size %d, concurrency %d)", tier.Name, tier.BatchSize, tier.Concurrency)

	runCfg := ingestion.Config{BatchSize: tier.BatchSize, Concurrency: tier.Concurrency}
	if cfg.BatchSize > 0 {
		runCfg.BatchSize = cfg.BatchSize
		log.Printf("Batch size overridden to %d", cfg.BatchSize)
	}
	if cfg.Concurrency > 0 {
		runCfg.Concurrency = cfg.Concurrency
		log.Printf("Concurrency overridden to %d", cfg.Concurrency)
	}

	pool, err := database.ConnectDB(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	store := database.NewPostgresStore(pool, database.DefaultRetryConfig())
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	service := ingestion.NewService(store, runCfg)

	files, unrecognized, err := service.ScanForFiles(cfg.InputDir)
	if err != nil {
		log.Fatalf("Failed to scan input directory: %v", err)
	}

	summary := service.Run(ctx, files)
	for _, report := range unrecognized {
		summary.Add(report)
	}

	log.Println("============================================================")
	log.Println("CNPJ load finished")
	for _, report := range summary.Reports {
		log.Printf("  %s", report)
	}
	log.Printf("Completed: %d  Skipped: %d  Failed: %d  Rows: %d",
		summary.Completed, summary.Skipped, summary.Failed, summary.TotalRows)
	log.Println("============================================================")

	if !summary.OK() {
		os.Exit(1)
	}
}
