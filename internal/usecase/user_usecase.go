package usecase

import (
	"context"
	"strings"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
)

type UserUseCase struct {
	userRepo repository.UserRepository
}

func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
	}
}

// EnsureProfile writes a profile document for a freshly authenticated user
// with merge semantics, so a first sign-in creates the doc and later sign-ins
// leave existing fields alone.
func (uc *UserUseCase) EnsureProfile(ctx context.Context, uid, email, displayName string) (*entity.User, error) {
	if uid == "" {
		return nil, errors.NotAuthenticated("No authenticated user", nil)
	}

	user, err := uc.userRepo.GetByID(ctx, uid)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	username := displayName
	if username == "" && email != "" {
		username = strings.SplitN(email, "@", 2)[0]
	}

	user = &entity.User{
		ID:          uid,
		Email:       email,
		Username:    username,
		DisplayName: displayName,
		Role:        "user",
	}
	if err := uc.userRepo.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (uc *UserUseCase) GetProfile(ctx context.Context, uid string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, uid)
}
