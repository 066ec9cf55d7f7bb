package usecase

import (
	"context"

	"lugares/internal/domain/entity"
)

// IdentityVerifier turns a bearer token into the caller's identity.
type IdentityVerifier interface {
	VerifyToken(ctx context.Context, token string) (entity.AuthorIdentity, error)
}

// SnapshotCache holds the full normalized restaurant list between reads.
//
// Every Invalidate moves the cache to a new generation. A loader reads the
// generation before it reads the store and hands it back to SetAll, which
// drops the list if an Invalidate happened in between.
type SnapshotCache interface {
	GetAll(ctx context.Context) ([]entity.RestaurantSnapshot, bool, error)
	Generation(ctx context.Context) (int64, error)
	SetAll(ctx context.Context, generation int64, snapshots []entity.RestaurantSnapshot) (bool, error)
	Invalidate(ctx context.Context) error
}

// RatingNotifier is told about every committed rating. It must not block.
type RatingNotifier interface {
	RatingUpdated(restaurantID string, result entity.RatingResult)
}
