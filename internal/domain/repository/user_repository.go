package repository

import (
	"context"

	"unimarket/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// Upsert writes the profile with merge semantics: missing documents are
	// created, existing fields not present in user are left untouched.
	Upsert(ctx context.Context, user *entity.User) error
}
