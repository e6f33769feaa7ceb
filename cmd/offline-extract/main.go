package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"orvex/internal/config"
	"orvex/internal/domain"
	"orvex/internal/export"
	"orvex/internal/extract"
	"orvex/internal/extract/azurevision"
	"orvex/internal/extract/pdftext"
	"orvex/internal/extract/remoteocr"
	"orvex/internal/layout"
	"orvex/internal/pipeline"
	"orvex/internal/port"
	"orvex/internal/profile"
	"orvex/internal/reasoning/openai"
	"orvex/internal/schema"
)

// offline-extract runs the ingestion pipeline against a local file
// without the HTTP server, for ad-hoc testing and batch scripting.
func main() {
	var (
		file      = flag.String("file", "", "path to the document (pdf, jpg, png)")
		profileID = flag.String("profile", "", "customer profile id (default profile when empty)")
		formID    = flag.String("form", "", "customer form id")
		forceOCR  = flag.Bool("force-ocr", false, "skip engines without the ocr capability")
		out       = flag.String("o", "", "output path; .csv or .xlsx export line items, otherwise JSON to stdout")
		timeout   = flag.Duration("timeout", 5*time.Minute, "overall deadline for the run")
		dryRun    = flag.Bool("dry-run", false, "skip the reasoning call and emit an empty order")
	)
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*file, *profileID, *formID, *forceOCR, *dryRun, *out, *timeout); err != nil {
		log.Fatal(err)
	}
}

func run(file, profileID, formID string, forceOCR, dryRun bool, out string, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engines := []port.ExtractionEngine{pdftext.NewEngine(10)}
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
	chain := extract.NewChain(engines, extract.ChainConfig{
		MinCharacters: cfg.Extract.MinCharacters,
		MinAlphaRatio: cfg.Extract.MinAlphaRatio,
	})

	var reasoner port.ReasoningEngine = openai.NewClient(&cfg.Reasoning)
	if dryRun {
		reasoner = stubReasoner{}
	}

	pipe := pipeline.New(
		profile.NewRepository(cfg.Profiles.Path, cfg.Profiles.CacheTTL),
		chain,
		layout.NewTextBlockAnalyzer(),
		schema.NewRegistry(),
		reasoner,
		cfg.Reasoning.SchemaName,
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := pipe.Run(ctx, &pipeline.Input{
		Source:            file,
		RawFilename:       filepath.Base(file),
		CustomerProfileID: profileID,
		FormID:            formID,
		ForceOCR:          forceOCR,
	})
	if err != nil {
		return err
	}

	for _, advisory := range res.ExtractionErrors {
		log.Printf("extraction advisory: %s", advisory)
	}

	return write(res.Order, out)
}

// stubReasoner lets the extraction stages be exercised without an API
// key; it returns the empty order shape.
type stubReasoner struct{}

func (stubReasoner) ExtractOrder(ctx context.Context, req *domain.ReasoningRequest) (*domain.ReasoningOutput, error) {
	return &domain.ReasoningOutput{
		RawPayload: json.RawMessage(`{"header":{},"lines":[]}`),
		ModelUsed:  "dry-run",
	}, nil
}

func write(order *domain.OrderResult, out string) error {
	if out == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(order)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(out)) {
	case ".csv":
		return export.WriteOrderCSV(f, order)
	case ".xlsx":
		return export.WriteOrderXLSX(f, order)
	default:
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(order)
	}
}
