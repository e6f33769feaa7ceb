package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"orvex/internal/domain"
	"orvex/internal/handler"
	"orvex/internal/layout"
	"orvex/internal/pipeline"
	"orvex/internal/router"
	"orvex/internal/schema"
	"orvex/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine   *gin.Engine
	profiles *mocks.MockProfileRepository
	chain    *mocks.MockExtractionEngine
	reasoner *mocks.MockReasoningEngine
}

func newTestServer() *testServer {
	s := &testServer{
		profiles: new(mocks.MockProfileRepository),
		chain:    &mocks.MockExtractionEngine{EngineName: "chain"},
		reasoner: new(mocks.MockReasoningEngine),
	}
	pipe := pipeline.New(s.profiles, s.chain, layout.NewNoopAnalyzer(), schema.NewRegistry(), s.reasoner, "")
	s.engine = router.Setup(
		nil,
		handler.NewExtractHandler(pipe, 50),
		nil,
		handler.NewHealthHandler(nil),
	)
	return s
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func postExtract(s *testServer, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/extract-order", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorBody {
	t.Helper()
	var body handler.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestExtract_Success(t *testing.T) {
	s := newTestServer()
	s.profiles.On("Load", mock.Anything, "acme").
		Return(&domain.CustomerProfile{ID: "acme", DefaultCurrency: "EUR"}, nil)
	s.chain.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.ExtractionResult{
			CombinedText: "ORDER 42",
			Metadata:     map[string]string{"engine_name": "pdftext"},
		}, nil)
	s.reasoner.On("ExtractOrder", mock.Anything, mock.Anything).
		Return(&domain.ReasoningOutput{
			RawPayload: json.RawMessage(`{"header":{"customer_name":"ACME"},"lines":[]}`),
			ModelUsed:  "gpt-4o",
		}, nil)

	body, ct := multipartBody(t, "order42.pdf", []byte("%PDF-1.4"), map[string]string{
		"customer_profile_id": "acme",
	})
	rec := postExtract(s, body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	var order domain.OrderResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, "acme", order.CustomerProfileID)
	assert.Equal(t, "ACME", *order.Header.CustomerName)
	assert.Equal(t, "EUR", *order.Header.Currency)
	assert.Equal(t, "order42.pdf", *order.Header.RawFilename)
}

func TestExtract_MissingFile(t *testing.T) {
	s := newTestServer()

	body, ct := multipartBody(t, "", nil, map[string]string{"customer_profile_id": "acme"})
	rec := postExtract(s, body, ct)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	eb := errorBody(t, rec)
	assert.Equal(t, handler.CodeInput, eb.Code)
	assert.Contains(t, eb.Detail, "file")
}

func TestExtract_UnsupportedFileType(t *testing.T) {
	s := newTestServer()

	body, ct := multipartBody(t, "order.docx", []byte("zip"), nil)
	rec := postExtract(s, body, ct)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, handler.CodeInput, errorBody(t, rec).Code)
}

func TestExtract_UpstreamTimeout(t *testing.T) {
	s := newTestServer()
	s.profiles.On("Load", mock.Anything, mock.Anything).
		Return(&domain.CustomerProfile{ID: "default"}, nil)
	s.chain.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.ExtractionResult{CombinedText: "text", Metadata: map[string]string{}}, nil)
	s.reasoner.On("ExtractOrder", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("reasoning request timed out: %w", domain.ErrUpstreamTimeout))

	body, ct := multipartBody(t, "a.pdf", []byte("%PDF-1.4"), nil)
	rec := postExtract(s, body, ct)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, handler.CodeUpstream, errorBody(t, rec).Code)
}

func TestExtract_DeadlineExceededMapsToUpstream(t *testing.T) {
	s := newTestServer()
	s.profiles.On("Load", mock.Anything, mock.Anything).
		Return(&domain.CustomerProfile{ID: "default"}, nil)
	s.chain.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, context.DeadlineExceeded)

	body, ct := multipartBody(t, "a.pdf", []byte("%PDF-1.4"), nil)
	rec := postExtract(s, body, ct)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, handler.CodeUpstream, errorBody(t, rec).Code)
}

func TestExtract_MalformedPayloadIsUnexpected(t *testing.T) {
	s := newTestServer()
	s.profiles.On("Load", mock.Anything, mock.Anything).
		Return(&domain.CustomerProfile{ID: "default"}, nil)
	s.chain.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.ExtractionResult{CombinedText: "text", Metadata: map[string]string{}}, nil)
	s.reasoner.On("ExtractOrder", mock.Anything, mock.Anything).
		Return(&domain.ReasoningOutput{RawPayload: json.RawMessage(`{"header":"broken","lines":[]}`)}, nil)

	body, ct := multipartBody(t, "a.pdf", []byte("%PDF-1.4"), nil)
	rec := postExtract(s, body, ct)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, handler.CodeUnexpected, errorBody(t, rec).Code)
}

func TestExtract_ForceOCRFieldCoerced(t *testing.T) {
	s := newTestServer()
	s.profiles.On("Load", mock.Anything, mock.Anything).
		Return(&domain.CustomerProfile{ID: "default"}, nil)

	var ectx *domain.ExtractionContext
	s.chain.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { ectx = args.Get(2).(*domain.ExtractionContext) }).
		Return(&domain.ExtractionResult{CombinedText: "text", Metadata: map[string]string{}}, nil)
	s.reasoner.On("ExtractOrder", mock.Anything, mock.Anything).
		Return(&domain.ReasoningOutput{RawPayload: json.RawMessage(`{"header":{},"lines":[]}`)}, nil)

	body, ct := multipartBody(t, "scan.pdf", []byte("%PDF-1.4"), map[string]string{"force_ocr": "YES"})
	rec := postExtract(s, body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ectx)
	assert.True(t, ectx.ForceOCR)
}

func TestHealthz(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
