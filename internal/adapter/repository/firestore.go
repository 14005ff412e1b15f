package repository

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "unimarket/pkg/errors"
)

// Every remote call runs under a bounded deadline so a dead backend surfaces
// as a TIMEOUT error instead of hanging the caller.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// storeErr translates Firestore transport failures into the error taxonomy.
// NotFound is handled at the call sites that know which resource was missing.
func storeErr(message string, err error) *apperrors.AppError {
	if errors.Is(err, context.DeadlineExceeded) || status.Code(err) == codes.DeadlineExceeded {
		return apperrors.Timeout(message, err)
	}
	if status.Code(err) == codes.Unavailable {
		return apperrors.Unavailable(message, err)
	}
	return apperrors.Internal(message, err)
}
