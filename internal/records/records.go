// Package records persists and queries image metadata records.
package records

import (
	"context"

	"github.com/imagepress/imagepress/internal/domain"
)

// Repository stores immutable image records. ID and CreatedAt are assigned
// by Create; callers leave them zero.
type Repository interface {
	Create(ctx context.Context, rec domain.ImageRecord) (domain.ImageRecord, error)
	// FindAll returns every record, newest first. Records created at the
	// same instant keep insertion order.
	FindAll(ctx context.Context) ([]domain.ImageRecord, error)
	FindByID(ctx context.Context, id string) (domain.ImageRecord, error)
	Aggregate(ctx context.Context) (domain.Aggregate, error)
	Close() error
}
