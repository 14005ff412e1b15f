package repository

import (
	"context"

	"unimarket/internal/domain/entity"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) error
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*entity.Listing, int64, error)
	// UpdateStatus patches only the status field. Idempotent: setting a status
	// the listing already has succeeds.
	UpdateStatus(ctx context.Context, id, status string) error
}
