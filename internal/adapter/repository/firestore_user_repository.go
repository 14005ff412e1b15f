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
)

type firestoreUserRepository struct {
	client  *firestore.Client
	timeout time.Duration
}

func NewFirestoreUserRepository(client *firestore.Client, timeout time.Duration) repository.UserRepository {
	return &firestoreUserRepository{
		client:  client,
		timeout: timeout,
	}
}

func (r *firestoreUserRepository) users() *firestore.CollectionRef {
	return r.client.Collection("users")
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	cctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	doc, err := r.users().Doc(id).Get(cctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, storeErr("Failed to get user", err)
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	user.ID = doc.Ref.ID

	return &user, nil
}

func (r *firestoreUserRepository) Upsert(ctx context.Context, user *entity.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	cctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.users().Doc(user.ID).Set(cctx, user, firestore.MergeAll)
	if err != nil {
		return storeErr("Failed to upsert user", err)
	}
	return nil
}
