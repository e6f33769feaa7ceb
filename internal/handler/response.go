package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"orvex/internal/domain"
)

// Error codes returned in ErrorBody.
const (
	CodeInput      = "ERR_INPUT"
	CodeUpstream   = "ERR_UPSTREAM"
	CodeUnexpected = "ERR_UNEXPECTED"
)

// ErrorBody is the error response shape for all endpoints.
type ErrorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, detail string) {
	c.JSON(status, ErrorBody{Detail: detail, Code: code})
}

// MapDomainError classifies an error into the HTTP status, error code,
// and caller-safe detail message. Input errors are user-correctable,
// upstream timeouts are retryable, everything else is opaque.
func MapDomainError(err error) (status int, code, detail string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeInput, "record not found"
	case errors.Is(err, domain.ErrMissingFilename):
		return http.StatusUnprocessableEntity, CodeInput, "uploaded file has no filename"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusUnprocessableEntity, CodeInput, "unsupported file type; allowed: pdf, jpg, png"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusUnprocessableEntity, CodeInput, "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrUnreadableSource):
		return http.StatusUnprocessableEntity, CodeInput, "source document could not be read"
	case errors.Is(err, domain.ErrUpstreamTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusBadGateway, CodeUpstream, "upstream service exceeded deadline; retry later"
	default:
		return http.StatusInternalServerError, CodeUnexpected, "an unexpected error occurred"
	}
}

// HandleError maps an error and sends the appropriate error response.
// The full error is logged before translation to a caller-safe message.
func HandleError(c *gin.Context, err error) {
	status, code, detail := MapDomainError(err)
	requestID, _ := c.Get("request_id")
	log.Printf("[%v] %s: %v", requestID, code, err)
	RespondError(c, status, code, detail)
}
