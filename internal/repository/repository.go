package repository

import (
	"context"

	"github.com/gatherly/auth-service/internal/models"
)

// TokenRepo persists issued token records keyed by (userID, tokenID).
// Implementations must return apperrors.ErrTokenNotFound when a record
// is absent so callers can tell not-found apart from backend failures.
type TokenRepo interface {
	Save(ctx context.Context, record models.TokenRecord) error
	Get(ctx context.Context, userID string, tokenID string) (models.TokenRecord, error)
	Delete(ctx context.Context, userID string, tokenID string) error
}

// UserRepo persists user accounts keyed by email.
// Create has to return apperrors.ErrUserAlreadyExists on a duplicate email,
// Get has to return apperrors.ErrUserNotFound for an unknown one.
type UserRepo interface {
	Create(ctx context.Context, username string, email string, hashedPassword string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type Storage interface {
	Tokens() TokenRepo
	Users() UserRepo
}
