package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"orvex/internal/domain"
	"orvex/internal/port"
)

type ingestionLogRepo struct {
	db *sqlx.DB
}

// NewIngestionLogRepo creates a new PostgreSQL-backed IngestionLogRepository.
func NewIngestionLogRepo(db *sqlx.DB) port.IngestionLogRepository {
	return &ingestionLogRepo{db: db}
}

func (r *ingestionLogRepo) Create(ctx context.Context, record *domain.IngestionRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO ingestion_logs
		(id, raw_filename, customer_profile_id, form_id, engine_name, model_used,
		 status, confidence, result, error_detail, extraction_errors, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.RawFilename, record.CustomerProfileID, record.FormID,
		record.EngineName, record.ModelUsed, record.Status, record.Confidence,
		record.Result, record.ErrorDetail, record.ExtractionErrors,
		record.DurationMs, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("ingestionLogRepo.Create: %w", err)
	}
	return nil
}

func (r *ingestionLogRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.IngestionRecord, error) {
	var record domain.IngestionRecord
	err := r.db.GetContext(ctx, &record,
		"SELECT * FROM ingestion_logs WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("ingestionLogRepo.GetByID: %w", err)
	}
	return &record, nil
}

func (r *ingestionLogRepo) List(ctx context.Context, offset, limit int) ([]domain.IngestionRecord, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM ingestion_logs"); err != nil {
		return nil, 0, fmt.Errorf("ingestionLogRepo.List count: %w", err)
	}

	var records []domain.IngestionRecord
	err := r.db.SelectContext(ctx, &records,
		`SELECT * FROM ingestion_logs
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ingestionLogRepo.List: %w", err)
	}
	return records, total, nil
}
