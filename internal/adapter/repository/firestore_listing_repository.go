package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

type firestoreListingRepository struct {
	client  *firestore.Client
	timeout time.Duration
}

func NewFirestoreListingRepository(client *firestore.Client, timeout time.Duration) repository.ListingRepository {
	return &firestoreListingRepository{
		client:  client,
		timeout: timeout,
	}
}

func (r *firestoreListingRepository) listings() *firestore.CollectionRef {
	return r.client.Collection("listings")
}

func (r *firestoreListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = r.listings().NewDoc().ID
	}

	now := time.Now()
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = now
	}
	listing.UpdatedAt = now

	cctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.listings().Doc(listing.ID).Set(cctx, listing)
	if err != nil {
		return storeErr("Failed to create listing", err)
	}
	return nil
}

func (r *firestoreListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	cctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	doc, err := r.listings().Doc(id).Get(cctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Listing", err)
		}
		return nil, storeErr("Failed to get listing", err)
	}

	var listing entity.Listing
	if err := doc.DataTo(&listing); err != nil {
		return nil, errors.Internal("Failed to parse listing data", err)
	}
	listing.ID = doc.Ref.ID

	return &listing, nil
}

func (r *firestoreListingRepository) ListByStatus(ctx context.Context, listingStatus string, limit, offset int) ([]*entity.Listing, int64, error) {
	cctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := r.listings().
		Where("status", "==", listingStatus).
		OrderBy("createdAt", firestore.Desc)

	allDocs, err := query.Documents(cctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while listing listings with status %s: %v", listingStatus, err)
		return nil, 0, storeErr("Failed to fetch listings", err)
	}

	total := int64(len(allDocs))

	start := offset
	end := len(allDocs)
	if limit > 0 {
		end = start + limit
		if end > len(allDocs) {
			end = len(allDocs)
		}
	}
	if start > len(allDocs) {
		start = len(allDocs)
	}

	var listings []*entity.Listing
	for i := start; i < end; i++ {
		var listing entity.Listing
		if err := allDocs[i].DataTo(&listing); err != nil {
			logger.Warn("Skipping malformed listing document %s: %v", allDocs[i].Ref.ID, err)
			continue
		}
		listing.ID = allDocs[i].Ref.ID
		listings = append(listings, &listing)
	}

	return listings, total, nil
}

func (r *firestoreListingRepository) UpdateStatus(ctx context.Context, id, listingStatus string) error {
	cctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.listings().Doc(id).Update(cctx, []firestore.Update{
		{Path: "status", Value: listingStatus},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Listing", err)
		}
		return storeErr("Failed to update listing status", err)
	}
	return nil
}
