package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"

	"orvex/internal/config"
	"orvex/internal/extract"
	"orvex/internal/extract/azurevision"
	"orvex/internal/extract/pdftext"
	"orvex/internal/extract/remoteocr"
	"orvex/internal/handler"
	"orvex/internal/layout"
	"orvex/internal/pipeline"
	"orvex/internal/port"
	"orvex/internal/profile"
	"orvex/internal/reasoning/openai"
	"orvex/internal/repository/postgres"
	"orvex/internal/router"
	"orvex/internal/schema"
	s3storage "orvex/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Audit log is optional; the service runs fine without a database.
	var db *sqlx.DB
	if cfg.DB.Enabled() {
		db, err = postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
	}

	chain := buildChain(cfg)
	profiles := profile.NewRepository(cfg.Profiles.Path, cfg.Profiles.CacheTTL)
	schemas := schema.NewRegistry()
	reasoner := openai.NewClient(&cfg.Reasoning)

	pipe := pipeline.New(profiles, chain, layout.NewTextBlockAnalyzer(), schemas, reasoner, cfg.Reasoning.SchemaName)

	var ingestionH *handler.IngestionHandler
	if db != nil {
		auditRepo := postgres.NewIngestionLogRepo(db)
		pipe.WithAuditLog(auditRepo)
		ingestionH = handler.NewIngestionHandler(auditRepo)
	}

	if cfg.S3.Enabled() {
		s3Client, err := s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		pipe.WithArchive(s3Client, cfg.S3.Bucket, cfg.S3.KeyPrefix)
	}

	extractH := handler.NewExtractHandler(pipe, cfg.Upload.MaxFileSizeMB)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(cfg.CORS.AllowedOrigins, extractH, ingestionH, healthH)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// buildChain assembles the extraction fallback chain from whatever
// engines the configuration enables. The local PDF text engine is
// always present; OCR engines join only when configured.
func buildChain(cfg *config.Config) *extract.Chain {
	engines := []port.ExtractionEngine{
		pdftext.NewEngine(10),
	}

	if cfg.Vision.Enabled() {
		engines = append(engines, azurevision.NewEngine(cfg.Vision.Endpoint, cfg.Vision.APIKey, 20))
	}

	if cfg.OCR.Enabled() {
		engines = append(engines, remoteocr.NewEngine(remoteocr.Config{
			Endpoint:          cfg.OCR.Endpoint,
			APIKey:            cfg.OCR.APIKey,
			Priority:          30,
			MaxConcurrent:     cfg.OCR.MaxConcurrent,
			RequestsPerSecond: cfg.OCR.RequestsPerSecond,
		}, &http.Client{Timeout: cfg.OCR.Timeout}))
	}

	return extract.NewChain(engines, extract.ChainConfig{
		MinCharacters: cfg.Extract.MinCharacters,
		MinAlphaRatio: cfg.Extract.MinAlphaRatio,
	})
}
