package repository

import (
	"context"

	"github.com/nkiryanov/videoroom/internal/models"
)

type Storage interface {
	RegToken() RegTokenRepo

	// Run fn in transaction. Storage passed to fn is bound to that transaction
	// Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

// Registration token repository interface
type RegTokenRepo interface {
	// Create token in repository, ID is set by the store
	// If the token string is taken already has to return apperrors.ErrRegTokenAlreadyExists
	Create(ctx context.Context, token models.RegToken) (models.RegToken, error)

	// Return all tokens matching the token string, ordered by ID
	// Expired and used tokens are returned too; empty slice if nothing matches
	ListByToken(ctx context.Context, tokenString string) ([]models.RegToken, error)

	// Mark token used
	// If token not found must return apperrors.ErrRegTokenNotFound
	// If token is used already must return apperrors.ErrRegTokenIsUsed and not overwrite 'usedAt'
	MarkUsed(ctx context.Context, tokenID int64) (models.RegToken, error)
}
