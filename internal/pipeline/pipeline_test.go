package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"orvex/internal/domain"
	"orvex/internal/layout"
	"orvex/internal/pipeline"
	"orvex/internal/schema"
	"orvex/mocks"
)

type fixture struct {
	profiles *mocks.MockProfileRepository
	chain    *mocks.MockExtractionEngine
	reasoner *mocks.MockReasoningEngine
	pipe     *pipeline.Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		profiles: new(mocks.MockProfileRepository),
		chain:    &mocks.MockExtractionEngine{EngineName: "chain", EngineCaps: []string{"text", "ocr"}},
		reasoner: new(mocks.MockReasoningEngine),
	}
	f.pipe = pipeline.New(f.profiles, f.chain, layout.NewNoopAnalyzer(), schema.NewRegistry(), f.reasoner, "")
	return f
}

func textResult(text string) *domain.ExtractionResult {
	return &domain.ExtractionResult{
		CombinedText: text,
		Pages:        []domain.PageResult{{PageNumber: 1, Text: text}},
		Metadata:     map[string]string{"engine_name": "pdftext"},
	}
}

func emptyResultWithErrors(errs ...string) *domain.ExtractionResult {
	return &domain.ExtractionResult{Metadata: map[string]string{"engine_name": "chain"}, Errors: errs}
}

func reasonedPayload(payload string) *domain.ReasoningOutput {
	return &domain.ReasoningOutput{RawPayload: json.RawMessage(payload), ModelUsed: "gpt-4o"}
}

func TestPipeline_CurrencyAndFilenameBackfill(t *testing.T) {
	f := newFixture()
	f.profiles.On("Load", mock.Anything, "acme").
		Return(&domain.CustomerProfile{ID: "acme", DefaultCurrency: "USD"}, nil)
	f.chain.On("Extract", mock.Anything, "/tmp/doc.pdf", mock.Anything).
		Return(textResult("Customer: ACME, PO 123, Qty 5 @ 10.00"), nil)
	f.reasoner.On("ExtractOrder", mock.Anything, mock.Anything).
		Return(reasonedPayload(`{"header":{"customer_name":"ACME"},"lines":[]}`), nil)

	res, err := f.pipe.Run(context.Background(), &pipeline.Input{
		Source:            "/tmp/doc.pdf",
		RawFilename:       "order123.pdf",
		CustomerProfileID: "acme",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StageDone, res.Stage)
	require.NotNil(t, res.Order)
	assert.Equal(t, "USD", *res.Order.Header.Currency)
	assert.Equal(t, "order123.pdf", *res.Order.Header.RawFilename)
	assert.Equal(t, "acme", res.Order.CustomerProfileID)
	assert.Equal(t, "pdftext", res.EngineName)
	assert.Equal(t, "gpt-4o", res.ModelUsed)
}

func TestPipeline_EmptyExtractionStillReasons(t *testing.T) {
	f := newFixture()
	f.profiles.On("Load", mock.Anything, "").
		Return(&domain.CustomerProfile{ID: domain.DefaultProfileID}, nil)
	f.chain.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(emptyResultWithErrors("pdftext: no text layer"), nil)

	var captured *domain.ReasoningRequest
	f.reasoner.On("ExtractOrder", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*domain.ReasoningRequest) }).
		Return(reasonedPayload(`{"header":{},"lines":[]}`), nil)

	res, err := f.pipe.Run(context.Background(), &pipeline.Input{
		Source:      "/tmp/blank.pdf",
		RawFilename: "blank.pdf",
	})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "", captured.Text)
	assert.Equal(t, []string{"pdftext: no text layer"}, res.ExtractionErrors)
	assert.Equal(t, domain.StageDone, res.Stage)
}

func TestPipeline_ProfileLoadErrorFallsBackToDefault(t *testing.T) {
	f := newFixture()
	f.profiles.On("Load", mock.Anything, "ghost").
		Return(nil, errors.New("store unavailable"))
	f.chain.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(textResult("some text"), nil)
	f.reasoner.On("ExtractOrder", mock.Anything, mock.Anything).
		Return(reasonedPayload(`{"header":{},"lines":[]}`), nil)

	res, err := f.pipe.Run(context.Background(), &pipeline.Input{
		Source:            "/tmp/doc.pdf",
		RawFilename:       "doc.pdf",
		CustomerProfileID: "ghost",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultProfileID, res.Order.CustomerProfileID)
}

func TestPipeline_ProfileMetadataDrivesForceOCR(t *testing.T) {
	f := newFixture()
	f.profiles.On("Load", mock.Anything, "acme").
		Return(&domain.CustomerProfile{
			ID:       "acme",
			Metadata: map[string]string{"force_ocr": "true"},
		}, nil)

	var ectx *domain.ExtractionContext
	f.chain.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { ectx = args.Get(2).(*domain.ExtractionContext) }).
		Return(textResult("scanned text"), nil)
	f.reasoner.On("ExtractOrder", mock.Anything, mock.Anything).
		Return(reasonedPayload(`{"header":{},"lines":[]}`), nil)

	_, err := f.pipe.Run(context.Background(), &pipeline.Input{
		Source:            "/tmp/scan.pdf",
		RawFilename:       "scan.pdf",
		CustomerProfileID: "acme",
	})
	require.NoError(t, err)

	require.NotNil(t, ectx)
	assert.True(t, ectx.ForceOCREffective())
}

func TestPipeline_ReasoningErrorPropagatesVerbatim(t *testing.T) {
	f := newFixture()
	f.profiles.On("Load", mock.Anything, mock.Anything).
		Return(&domain.CustomerProfile{ID: "default"}, nil)
	f.chain.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(textResult("text"), nil)

	upstream := errors.New("reasoning request timed out: upstream service exceeded deadline")
	f.reasoner.On("ExtractOrder", mock.Anything, mock.Anything).Return(nil, upstream)

	res, err := f.pipe.Run(context.Background(), &pipeline.Input{Source: "/tmp/d.pdf", RawFilename: "d.pdf"})
	require.Error(t, err)
	assert.Equal(t, upstream, err)
	assert.Equal(t, domain.StageFailed, res.Stage)
	assert.Nil(t, res.Order)
}

func TestPipeline_NormalizationFailurePropagates(t *testing.T) {
	f := newFixture()
	f.profiles.On("Load", mock.Anything, mock.Anything).
		Return(&domain.CustomerProfile{ID: "default"}, nil)
	f.chain.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(textResult("text"), nil)
	f.reasoner.On("ExtractOrder", mock.Anything, mock.Anything).
		Return(reasonedPayload(`{"header":{},"lines":[],"totals":{"grand_total":"not a number"}}`), nil)

	res, err := f.pipe.Run(context.Background(), &pipeline.Input{Source: "/tmp/d.pdf", RawFilename: "d.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
	assert.Equal(t, domain.StageFailed, res.Stage)
}

func TestPipeline_UnknownFormFallsBackToDefaultSchema(t *testing.T) {
	f := newFixture()
	f.profiles.On("Load", mock.Anything, "acme").
		Return(&domain.CustomerProfile{ID: "acme"}, nil)
	f.chain.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(textResult("text"), nil)

	var captured *domain.ReasoningRequest
	f.reasoner.On("ExtractOrder", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*domain.ReasoningRequest) }).
		Return(reasonedPayload(`{"header":{},"lines":[]}`), nil)

	_, err := f.pipe.Run(context.Background(), &pipeline.Input{
		Source:            "/tmp/d.pdf",
		RawFilename:       "d.pdf",
		CustomerProfileID: "acme",
		FormID:            "nonexistent_form",
	})
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.NotEmpty(t, captured.SchemaLiteral)
	assert.NotNil(t, captured.JSONSchema)
}

func TestPipeline_AuditRecordWrittenOnSuccessAndFailure(t *testing.T) {
	f := newFixture()
	audit := new(mocks.MockIngestionLogRepo)
	f.pipe.WithAuditLog(audit)

	f.profiles.On("Load", mock.Anything, mock.Anything).
		Return(&domain.CustomerProfile{ID: "default"}, nil)
	f.chain.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(textResult("text"), nil)
	f.reasoner.On("ExtractOrder", mock.Anything, mock.Anything).
		Return(reasonedPayload(`{"header":{},"lines":[]}`), nil).Once()
	f.reasoner.On("ExtractOrder", mock.Anything, mock.Anything).
		Return(nil, errors.New("boom"))

	var records []*domain.IngestionRecord
	audit.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { records = append(records, args.Get(1).(*domain.IngestionRecord)) }).
		Return(nil)

	_, err := f.pipe.Run(context.Background(), &pipeline.Input{Source: "/tmp/d.pdf", RawFilename: "d.pdf"})
	require.NoError(t, err)
	_, err = f.pipe.Run(context.Background(), &pipeline.Input{Source: "/tmp/d.pdf", RawFilename: "d.pdf"})
	require.Error(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, domain.IngestionStatusCompleted, records[0].Status)
	assert.NotEmpty(t, records[0].Result)
	assert.Equal(t, domain.IngestionStatusFailed, records[1].Status)
	assert.Contains(t, records[1].ErrorDetail, "boom")
}

func TestPipeline_NoReasonerConfigured(t *testing.T) {
	f := &fixture{
		profiles: new(mocks.MockProfileRepository),
		chain:    &mocks.MockExtractionEngine{EngineName: "chain"},
	}
	pipe := pipeline.New(f.profiles, f.chain, layout.NewNoopAnalyzer(), schema.NewRegistry(), nil, "")

	res, err := pipe.Run(context.Background(), &pipeline.Input{Source: "/tmp/d.pdf", RawFilename: "d.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReasoningDisabled)
	assert.Equal(t, domain.StageFailed, res.Stage)
}
