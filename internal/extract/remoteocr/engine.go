package remoteocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"orvex/internal/domain"
	"orvex/internal/port"
)

const engineName = "remote_ocr"

// Config holds the engine settings.
type Config struct {
	Endpoint          string
	APIKey            string
	Priority          int
	MaxConcurrent     int
	RequestsPerSecond float64
}

// Engine is the costly OCR stage of the fallback chain. It submits
// each document page to a remote OCR service, bounded both in
// concurrency and request rate, and assembles the page responses into
// one ExtractionResult. Per-page failures are advisory.
type Engine struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

// NewEngine creates a remote OCR engine.
func NewEngine(cfg Config, client *http.Client) *Engine {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Engine{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

func (e *Engine) Name() string { return engineName }

func (e *Engine) Priority() int { return e.cfg.Priority }

func (e *Engine) Capabilities() []string { return []string{port.CapText, port.CapOCR} }

// pagePayload models one page response from the OCR service. Some
// deployments wrap the body in a "data" envelope; both forms are
// accepted.
type pagePayload struct {
	Text       string               `json:"text"`
	Layout     []domain.LayoutBlock `json:"layout"`
	Confidence *float64             `json:"confidence"`
}

func (e *Engine) Extract(ctx context.Context, source string, ectx *domain.ExtractionContext) (*domain.ExtractionResult, error) {
	fileBytes, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	pageCount, err := countPages(source)
	if err != nil {
		// Not a PDF (or unreadable structure): submit as a single page.
		pageCount = 1
	}

	var (
		mu      sync.Mutex
		pages   []domain.PageResult
		pageErr []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrent)
	for pageNo := 1; pageNo <= pageCount; pageNo++ {
		g.Go(func() error {
			if err := e.limiter.Wait(gctx); err != nil {
				return err
			}
			payload, err := e.callOCR(gctx, fileBytes, ectx.RawFilename, pageNo)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("remoteocr.Engine: page %d failed: %v", pageNo, err)
				pageErr = append(pageErr, fmt.Sprintf("page %d: %v", pageNo, err))
				return nil
			}
			page := domain.PageResult{
				PageNumber: pageNo,
				Text:       payload.Text,
				Layout:     payload.Layout,
			}
			if payload.Confidence != nil {
				page.Metadata = map[string]string{
					"confidence": strconv.FormatFloat(*payload.Confidence, 'f', -1, 64),
				}
			}
			pages = append(pages, page)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].PageNumber < pages[j].PageNumber })

	result := &domain.ExtractionResult{
		Pages: pages,
		Metadata: map[string]string{
			"engine_name":  engineName,
			"page_count":   strconv.Itoa(pageCount),
			"ocr_provider": "remote",
		},
		Errors: pageErr,
	}
	result.JoinPages()
	return result, nil
}

func (e *Engine) callOCR(ctx context.Context, fileBytes []byte, filename string, pageNo int) (*pagePayload, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := part.Write(fileBytes); err != nil {
		return nil, fmt.Errorf("writing file part: %w", err)
	}
	if err := writer.WriteField("page", strconv.Itoa(pageNo)); err != nil {
		return nil, fmt.Errorf("writing page field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ocr service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var envelope struct {
		Data *pagePayload `json:"data"`
		pagePayload
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if envelope.Data != nil {
		return envelope.Data, nil
	}
	return &envelope.pagePayload, nil
}

// countPages reads the PDF structure locally; OCR happens remotely but
// page fan-out is decided here.
func countPages(source string) (int, error) {
	f, reader, err := pdf.Open(source)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	n := reader.NumPage()
	if n < 1 {
		return 0, fmt.Errorf("document has no pages")
	}
	return n, nil
}
