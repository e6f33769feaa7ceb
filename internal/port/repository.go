package port

import (
	"context"

	"github.com/google/uuid"

	"orvex/internal/domain"
)

// ProfileRepository resolves customer profiles. A lookup miss degrades
// to the well-known default profile rather than failing.
type ProfileRepository interface {
	Load(ctx context.Context, profileID string) (*domain.CustomerProfile, error)
}

// IngestionLogRepository persists the audit trail of pipeline runs.
type IngestionLogRepository interface {
	Create(ctx context.Context, record *domain.IngestionRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.IngestionRecord, error)
	List(ctx context.Context, offset, limit int) ([]domain.IngestionRecord, int, error)
}
