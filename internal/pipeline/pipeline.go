package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"orvex/internal/domain"
	"orvex/internal/extract"
	"orvex/internal/normalize"
	"orvex/internal/port"
	"orvex/internal/schema"
)

// Input is the DTO for one ingestion run.
type Input struct {
	Source            string // path to the uploaded document on disk
	RawFilename       string
	CustomerProfileID string
	FormID            string
	ForceOCR          bool
}

// Result pairs the normalized order with run diagnostics.
type Result struct {
	Order            *domain.OrderResult
	Stage            domain.IngestionStage
	EngineName       string
	ModelUsed        string
	ExtractionErrors []string
	Duration         time.Duration
}

// Pipeline sequences one ingestion run: profile resolution, the
// extraction chain, layout analysis, reasoning, and normalization.
// Stages run strictly in order with no retries at this layer.
// Extraction failures are soft; anything from reasoning onward
// propagates to the caller unmodified.
type Pipeline struct {
	profiles   port.ProfileRepository
	chain      port.ExtractionEngine
	layout     port.LayoutAnalyzer
	schemas    *schema.Registry
	reasoner   port.ReasoningEngine
	schemaName string

	auditLog  port.IngestionLogRepository // nil disables auditing
	archive   port.ObjectStorage          // nil disables archival
	bucket    string
	keyPrefix string

	mu          sync.Mutex
	normalizers map[string]*normalize.Normalizer
}

// New creates a pipeline. auditLog and archive may be nil; both are
// best-effort side channels that never fail a request.
func New(
	profiles port.ProfileRepository,
	chain port.ExtractionEngine,
	layout port.LayoutAnalyzer,
	schemas *schema.Registry,
	reasoner port.ReasoningEngine,
	schemaName string,
) *Pipeline {
	if schemaName == "" {
		schemaName = schema.OrderV1
	}
	return &Pipeline{
		profiles:    profiles,
		chain:       chain,
		layout:      layout,
		schemas:     schemas,
		reasoner:    reasoner,
		schemaName:  schemaName,
		normalizers: map[string]*normalize.Normalizer{},
	}
}

// WithAuditLog enables persisting an IngestionRecord per run.
func (p *Pipeline) WithAuditLog(repo port.IngestionLogRepository) *Pipeline {
	p.auditLog = repo
	return p
}

// WithArchive enables best-effort archival of source documents.
func (p *Pipeline) WithArchive(storage port.ObjectStorage, bucket, keyPrefix string) *Pipeline {
	p.archive = storage
	p.bucket = bucket
	p.keyPrefix = keyPrefix
	return p
}

// Run executes one ingestion. The returned Result always carries the
// terminal stage; Order is nil exactly when err is non-nil.
func (p *Pipeline) Run(ctx context.Context, input *Input) (*Result, error) {
	start := time.Now()
	res := &Result{Stage: domain.StageIdle}

	if p.reasoner == nil {
		return p.fail(ctx, input, res, start, domain.ErrReasoningDisabled)
	}

	res.Stage = domain.StageResolvingProfile
	profile, err := p.profiles.Load(ctx, input.CustomerProfileID)
	if err != nil {
		log.Printf("pipeline.Run: profile load failed for %q, using empty default: %v", input.CustomerProfileID, err)
		profile = &domain.CustomerProfile{ID: domain.DefaultProfileID}
	}

	ectx := &domain.ExtractionContext{
		RawFilename:       input.RawFilename,
		CustomerProfileID: profile.ID,
		Hints:             profile.Metadata,
		ForceOCR:          input.ForceOCR,
	}

	res.Stage = domain.StageExtracting
	extraction, err := p.chain.Extract(ctx, input.Source, ectx)
	if err != nil {
		// Only context cancellation escapes the chain.
		return p.fail(ctx, input, res, start, err)
	}
	res.EngineName = extraction.Metadata[extract.MetaEngineName]
	res.ExtractionErrors = extraction.Errors

	res.Stage = domain.StageAnalyzingLayout
	layout, err := p.layout.Analyze(ctx, input.Source, extraction, ectx)
	if err != nil {
		log.Printf("pipeline.Run: layout analysis failed, continuing without layout: %v", err)
		layout = &domain.LayoutResult{}
	}

	schemaName := p.schemaName
	form := profile.ResolveForm(input.FormID)
	if form != nil && form.SchemaName != "" {
		schemaName = form.SchemaName
	}
	jsonSchema, err := p.schemas.JSONSchema(schemaName)
	if err != nil {
		return p.fail(ctx, input, res, start, err)
	}
	literal, err := p.schemas.Literal(schemaName)
	if err != nil {
		return p.fail(ctx, input, res, start, err)
	}

	req := &domain.ReasoningRequest{
		Text:          extraction.CombinedText,
		RawFilename:   input.RawFilename,
		Profile:       profile,
		SchemaLiteral: literal,
		JSONSchema:    jsonSchema,
		FormID:        input.FormID,
		Layout:        layout,
	}

	res.Stage = domain.StageReasoning
	reasoned, err := p.reasoner.ExtractOrder(ctx, req)
	if err != nil {
		return p.fail(ctx, input, res, start, err)
	}
	res.ModelUsed = reasoned.ModelUsed

	res.Stage = domain.StageNormalizing
	normalizer, err := p.normalizerFor(schemaName, jsonSchema)
	if err != nil {
		return p.fail(ctx, input, res, start, err)
	}
	order, err := normalizer.Normalize(reasoned, input.RawFilename, profile)
	if err != nil {
		return p.fail(ctx, input, res, start, err)
	}

	res.Stage = domain.StageDone
	res.Order = order
	res.Duration = time.Since(start)

	p.writeAudit(ctx, input, res, nil)
	p.archiveSource(ctx, input)
	return res, nil
}

func (p *Pipeline) fail(ctx context.Context, input *Input, res *Result, start time.Time, err error) (*Result, error) {
	failedAt := res.Stage
	res.Stage = domain.StageFailed
	res.Duration = time.Since(start)
	log.Printf("pipeline.Run: stage %s failed for %q: %v", failedAt, input.RawFilename, err)
	p.writeAudit(ctx, input, res, err)
	return res, err
}

func (p *Pipeline) normalizerFor(name string, jsonSchema map[string]any) (*normalize.Normalizer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n, ok := p.normalizers[name]; ok {
		return n, nil
	}
	n, err := normalize.NewNormalizer(jsonSchema)
	if err != nil {
		return nil, fmt.Errorf("building normalizer for %s: %w", name, err)
	}
	p.normalizers[name] = n
	return n, nil
}

func (p *Pipeline) writeAudit(ctx context.Context, input *Input, res *Result, runErr error) {
	if p.auditLog == nil {
		return
	}
	record := &domain.IngestionRecord{
		ID:                uuid.New(),
		RawFilename:       input.RawFilename,
		CustomerProfileID: input.CustomerProfileID,
		FormID:            input.FormID,
		EngineName:        res.EngineName,
		ModelUsed:         res.ModelUsed,
		Status:            domain.IngestionStatusCompleted,
		ExtractionErrors:  len(res.ExtractionErrors),
		DurationMs:        res.Duration.Milliseconds(),
		CreatedAt:         time.Now().UTC(),
	}
	if runErr != nil {
		record.Status = domain.IngestionStatusFailed
		record.ErrorDetail = runErr.Error()
	}
	if res.Order != nil {
		record.Confidence = res.Order.Confidence
		if encoded, err := json.Marshal(res.Order); err == nil {
			record.Result = encoded
		}
	}
	if err := p.auditLog.Create(ctx, record); err != nil {
		log.Printf("pipeline.writeAudit: %v", err)
	}
}

func (p *Pipeline) archiveSource(ctx context.Context, input *Input) {
	if p.archive == nil {
		return
	}
	f, err := os.Open(input.Source)
	if err != nil {
		log.Printf("pipeline.archiveSource: open %s: %v", input.Source, err)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		log.Printf("pipeline.archiveSource: stat %s: %v", input.Source, err)
		return
	}

	key := path.Join(p.keyPrefix, time.Now().UTC().Format("2006/01/02"), uuid.NewString()+"_"+input.RawFilename)
	_, err = p.archive.Upload(ctx, port.UploadInput{
		Bucket:      p.bucket,
		Key:         key,
		Body:        f,
		ContentType: contentTypeFor(input.RawFilename),
		Size:        info.Size(),
	})
	if err != nil {
		log.Printf("pipeline.archiveSource: upload %s: %v", key, err)
	}
}

func contentTypeFor(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ft, ok := domain.AllowedExtensions[ext]; ok {
		return domain.AllowedFileTypes[ft]
	}
	return "application/octet-stream"
}
