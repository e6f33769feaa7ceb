package remoteocr_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orvex/internal/domain"
	"orvex/internal/extract/remoteocr"
	"orvex/internal/port"
)

func writeTempDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not-a-real-image"), 0o600))
	return path
}

func testEctx() *domain.ExtractionContext {
	return &domain.ExtractionContext{RawFilename: "scan.jpg", CustomerProfileID: "default"}
}

func TestEngine_ExtractSinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "1", r.FormValue("page"))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"Customer: ACME\nPO 123","layout":[{"type":"heading","text":"Customer: ACME"}],"confidence":0.93}`))
	}))
	defer server.Close()

	engine := remoteocr.NewEngine(remoteocr.Config{
		Endpoint: server.URL,
		APIKey:   "test-key",
		Priority: 50,
	}, server.Client())

	result, err := engine.Extract(context.Background(), writeTempDoc(t), testEctx())

	require.NoError(t, err)
	assert.Equal(t, "Customer: ACME\nPO 123", result.CombinedText)
	require.Len(t, result.Pages, 1)
	assert.Equal(t, 1, result.Pages[0].PageNumber)
	assert.Equal(t, "heading", result.Pages[0].Layout[0].Type)
	assert.Equal(t, "0.93", result.Pages[0].Metadata["confidence"])
	assert.Equal(t, "remote_ocr", result.Metadata["engine_name"])
	assert.Empty(t, result.Errors)
}

func TestEngine_DataEnvelopeAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"text":"wrapped body"}}`))
	}))
	defer server.Close()

	engine := remoteocr.NewEngine(remoteocr.Config{Endpoint: server.URL, APIKey: "k"}, server.Client())
	result, err := engine.Extract(context.Background(), writeTempDoc(t), testEctx())

	require.NoError(t, err)
	assert.Equal(t, "wrapped body", result.CombinedText)
}

func TestEngine_ServerErrorIsAdvisory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ocr backend down", http.StatusBadGateway)
	}))
	defer server.Close()

	engine := remoteocr.NewEngine(remoteocr.Config{Endpoint: server.URL, APIKey: "k"}, server.Client())
	result, err := engine.Extract(context.Background(), writeTempDoc(t), testEctx())

	require.NoError(t, err)
	assert.Empty(t, result.CombinedText)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "status 502")
}

func TestEngine_Capabilities(t *testing.T) {
	engine := remoteocr.NewEngine(remoteocr.Config{Endpoint: "http://x", APIKey: "k", Priority: 50}, nil)
	assert.Equal(t, 50, engine.Priority())
	assert.Contains(t, engine.Capabilities(), port.CapOCR)
	assert.Contains(t, engine.Capabilities(), port.CapText)
}

func TestEngine_CanceledContextPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":"ok"}`))
	}))
	defer server.Close()

	engine := remoteocr.NewEngine(remoteocr.Config{Endpoint: server.URL, APIKey: "k"}, server.Client())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Extract(ctx, writeTempDoc(t), testEctx())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
