package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"orvex/internal/domain"
	"orvex/internal/pipeline"
)

// ExtractHandler handles the order-extraction endpoint.
type ExtractHandler struct {
	pipe          *pipeline.Pipeline
	maxFileSizeMB int64
}

// NewExtractHandler creates a new ExtractHandler.
func NewExtractHandler(pipe *pipeline.Pipeline, maxFileSizeMB int64) *ExtractHandler {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = 50
	}
	return &ExtractHandler{pipe: pipe, maxFileSizeMB: maxFileSizeMB}
}

// Extract handles POST /extract-order. The multipart body carries the
// document under "file" plus optional customer_profile_id, form_id,
// and force_ocr fields. The uploaded file lives in a per-request temp
// directory removed when the request finishes.
func (h *ExtractHandler) Extract(c *gin.Context) {
	maxBytes := h.maxFileSizeMB * 1024 * 1024
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			HandleError(c, domain.ErrFileTooLarge)
			return
		}
		RespondError(c, http.StatusUnprocessableEntity, CodeInput, "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	rawFilename := filepath.Base(header.Filename)
	if rawFilename == "" || rawFilename == "." {
		HandleError(c, domain.ErrMissingFilename)
		return
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(rawFilename)), ".")
	if _, ok := domain.AllowedExtensions[ext]; !ok {
		HandleError(c, domain.ErrUnsupportedFileType)
		return
	}
	if header.Size > maxBytes {
		HandleError(c, domain.ErrFileTooLarge)
		return
	}

	source, cleanup, err := h.spool(file, rawFilename)
	if err != nil {
		HandleError(c, err)
		return
	}
	defer cleanup()

	input := &pipeline.Input{
		Source:            source,
		RawFilename:       rawFilename,
		CustomerProfileID: c.PostForm("customer_profile_id"),
		FormID:            c.PostForm("form_id"),
		ForceOCR:          isTruthy(c.PostForm("force_ocr")),
	}

	res, err := h.pipe.Run(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, res.Order)
}

// spool writes the upload to a per-request temp directory and returns
// the path plus a cleanup func.
func (h *ExtractHandler) spool(file io.Reader, rawFilename string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "orvex-upload-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("extractHandler.spool: cleanup %s: %v", dir, err)
		}
	}

	path := filepath.Join(dir, rawFilename)
	dst, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		cleanup()
		return "", nil, domain.ErrUnreadableSource
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
