package usecase

import (
	"context"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
)

// ListingUseCase is a thin read surface over the listing store. Listing
// creation and moderation live outside this service; the chat subsystem only
// reads listings and reserves them through the offer workflows.
type ListingUseCase struct {
	listingRepo repository.ListingRepository
}

func NewListingUseCase(listingRepo repository.ListingRepository) *ListingUseCase {
	return &ListingUseCase{
		listingRepo: listingRepo,
	}
}

func (uc *ListingUseCase) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	return uc.listingRepo.GetByID(ctx, id)
}

func (uc *ListingUseCase) ListAvailable(ctx context.Context, limit, offset int) ([]*entity.Listing, int64, error) {
	return uc.listingRepo.ListByStatus(ctx, entity.ListingStatusAvailable, limit, offset)
}
