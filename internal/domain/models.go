package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IngestionRecord is the audit-log row written for every pipeline run.
type IngestionRecord struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	RawFilename       string          `db:"raw_filename" json:"raw_filename"`
	CustomerProfileID string          `db:"customer_profile_id" json:"customer_profile_id"`
	FormID            string          `db:"form_id" json:"form_id"`
	EngineName        string          `db:"engine_name" json:"engine_name"`
	ModelUsed         string          `db:"model_used" json:"model_used"`
	Status            IngestionStatus `db:"status" json:"status"`
	Confidence        *float64        `db:"confidence" json:"confidence"`
	Result            json.RawMessage `db:"result" json:"result"`
	ErrorDetail       string          `db:"error_detail" json:"error_detail"`
	ExtractionErrors  int             `db:"extraction_errors" json:"extraction_errors"`
	DurationMs        int64           `db:"duration_ms" json:"duration_ms"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}
