package domain

import "errors"

var (
	ErrNotFound            = errors.New("record not found")
	ErrMissingFilename     = errors.New("uploaded file has no filename")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUnreadableSource    = errors.New("source document could not be read")
	ErrSchemaNotFound      = errors.New("schema not registered")
	ErrUpstreamTimeout     = errors.New("upstream service exceeded deadline")
	ErrInvalidPayload      = errors.New("reasoning payload failed validation")
	ErrReasoningDisabled   = errors.New("reasoning engine is not configured")
)
