package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"store-billing/internal/domain"
	"store-billing/internal/domain/model"
	"store-billing/internal/domain/ports/repository"
)

var _ repository.StoreTokenRepository = (*storeTokenRepo)(nil)

type storeTokenRepo struct{ pool *pgxpool.Pool }

func NewStoreTokenRepo(pool *pgxpool.Pool) *storeTokenRepo {
	return &storeTokenRepo{pool: pool}
}

func (r *storeTokenRepo) AddTokens(ctx context.Context, tx repository.Tx, storeID, userID string, tokens int64) (int64, error) {
	if storeID == "" || tokens <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO store_tokens (store_id, user_id, tokens, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (store_id) DO UPDATE
   SET tokens = store_tokens.tokens + EXCLUDED.tokens,
       updated_at = NOW()
RETURNING tokens;`
	row, err := pickRow(ctx, r.pool, tx, q, storeID, userID, tokens)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, domain.ErrOperationFailed
	}
	return total, nil
}

func (r *storeTokenRepo) FindByStoreID(ctx context.Context, tx repository.Tx, storeID string) (*model.StoreTokens, error) {
	const q = `SELECT store_id, user_id, tokens FROM store_tokens WHERE store_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, storeID)
	if err != nil {
		return nil, err
	}
	st := &model.StoreTokens{}
	if err := row.Scan(&st.StoreID, &st.UserID, &st.Tokens); err != nil {
		return nil, mapScanErr(err)
	}
	return st, nil
}
