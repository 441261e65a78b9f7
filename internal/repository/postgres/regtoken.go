package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/videoroom/internal/apperrors"
	"github.com/nkiryanov/videoroom/internal/models"
)

type RegTokenRepo struct {
	DB DBTX
}

const createRegToken = `-- name: Create registration token
INSERT INTO reg_tokens (email, token, created_at, expired_at)
VALUES ($1, $2, $3, $4)
RETURNING id, email, token, created_at, expired_at, used_at
`

func (r *RegTokenRepo) Create(ctx context.Context, token models.RegToken) (models.RegToken, error) {
	rows, _ := r.DB.Query(ctx, createRegToken, token.Email, token.Token, token.CreatedAt, token.ExpiredAt)
	created, err := pgx.CollectOneRow(rows, rowToRegToken)

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return created, nil
	case errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
		return created, fmt.Errorf("repo error: %w", apperrors.ErrRegTokenAlreadyExists)
	default:
		return created, fmt.Errorf("db error: %w", err)
	}
}

const listRegTokens = `-- name: List registration tokens by token string
SELECT id, email, token, created_at, expired_at, used_at
FROM reg_tokens
WHERE token = $1
ORDER BY id
`

func (r *RegTokenRepo) ListByToken(ctx context.Context, tokenString string) ([]models.RegToken, error) {
	rows, _ := r.DB.Query(ctx, listRegTokens, tokenString)
	tokens, err := pgx.CollectRows(rows, rowToRegToken)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tokens, nil
}

const markRegTokenUsed = `-- name: Mark token used if it not used
WITH target AS (
    SELECT id, used_at AS prev_used_at
    FROM reg_tokens
    WHERE id = $1
    FOR UPDATE
)
UPDATE reg_tokens
SET used_at = COALESCE(reg_tokens.used_at, clock_timestamp())
FROM target
WHERE reg_tokens.id = target.id
RETURNING reg_tokens.id, reg_tokens.email, reg_tokens.token, reg_tokens.created_at,
    reg_tokens.expired_at, reg_tokens.used_at, target.prev_used_at IS NULL AS marked
`

// Mark token as used
// Must be idempotent: already used token keeps its 'used_at' and error returned
func (r *RegTokenRepo) MarkUsed(ctx context.Context, tokenID int64) (models.RegToken, error) {
	var marked bool
	rows, _ := r.DB.Query(ctx, markRegTokenUsed, tokenID)
	token, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.RegToken, error) {
		var t models.RegToken
		err := row.Scan(&t.ID, &t.Email, &t.Token, &t.CreatedAt, &t.ExpiredAt, &t.UsedAt, &marked)
		return t, err
	})

	switch {
	case err == nil && marked:
		return token, nil
	case err == nil:
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRegTokenIsUsed)
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRegTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

func rowToRegToken(row pgx.CollectableRow) (models.RegToken, error) {
	var t models.RegToken
	err := row.Scan(&t.ID, &t.Email, &t.Token, &t.CreatedAt, &t.ExpiredAt, &t.UsedAt)
	return t, err
}
