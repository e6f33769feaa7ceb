package azurevision

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/disintegration/imaging"

	"orvex/internal/domain"
	"orvex/internal/port"
)

const engineName = "azure_vision"

// Engine performs OCR on scanned image uploads (jpg/png) via Azure
// Computer Vision. Images are contrast-enhanced before submission;
// photographed order forms are rarely OCR-ready as shot.
type Engine struct {
	client   *computervision.BaseClient
	priority int
}

// NewEngine creates an Azure Computer Vision OCR engine.
func NewEngine(endpoint, apiKey string, priority int) *Engine {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return &Engine{client: &client, priority: priority}
}

func (e *Engine) Name() string { return engineName }

func (e *Engine) Priority() int { return e.priority }

func (e *Engine) Capabilities() []string { return []string{port.CapText, port.CapOCR} }

func (e *Engine) Extract(ctx context.Context, source string, ectx *domain.ExtractionContext) (*domain.ExtractionResult, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(source)), ".")
	if _, ok := domain.AllowedExtensions[ext]; !ok || ext == "pdf" {
		return nil, fmt.Errorf("unsupported file type %q for image ocr", ext)
	}

	enhanced, err := enhanceForOCR(source)
	if err != nil {
		return nil, fmt.Errorf("preprocessing image: %w", err)
	}

	ocrResult, err := e.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(enhanced)),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		return nil, fmt.Errorf("azure ocr: %w", err)
	}

	text, layout := collectLines(ocrResult)
	result := &domain.ExtractionResult{
		Pages: []domain.PageResult{{PageNumber: 1, Text: text, Layout: layout}},
		Metadata: map[string]string{
			"engine_name":  engineName,
			"page_count":   "1",
			"ocr_provider": "azure",
		},
	}
	result.JoinPages()
	return result, nil
}

// enhanceForOCR applies the preprocessing steps that make printed text
// legible to the OCR backend: grayscale, contrast, sharpen.
func enhanceForOCR(source string) ([]byte, error) {
	src, err := imaging.Open(source)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustBrightness(img, 10)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return buf.Bytes(), nil
}

// collectLines flattens the region/line/word hierarchy of an OCR
// result into plain text plus positioned layout blocks.
func collectLines(result computervision.OcrResult) (string, []domain.LayoutBlock) {
	if result.Regions == nil {
		return "", nil
	}
	var (
		textLines []string
		blocks    []domain.LayoutBlock
	)
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			var words []string
			if line.Words != nil {
				for _, word := range *line.Words {
					if word.Text != nil {
						words = append(words, *word.Text)
					}
				}
			}
			lineText := strings.Join(words, " ")
			if lineText == "" {
				continue
			}
			textLines = append(textLines, lineText)

			block := domain.LayoutBlock{Type: "line", Text: lineText, Page: 1}
			if line.BoundingBox != nil {
				if x, y, ok := parseBoundingBox(*line.BoundingBox); ok {
					block.X = x
					block.Y = y
				}
			}
			blocks = append(blocks, block)
		}
	}
	return strings.Join(textLines, "\n"), blocks
}

// parseBoundingBox reads the leading "x,y" of an Azure bounding box
// string ("x,y,w,h").
func parseBoundingBox(raw string) (int, int, bool) {
	parts := strings.Split(raw, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	x, errX := strconv.Atoi(parts[0])
	y, errY := strconv.Atoi(parts[1])
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return x, y, true
}
