package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"store-billing/internal/domain"
	"store-billing/internal/domain/model"
	"store-billing/internal/domain/ports/repository"
)

var _ repository.WalletTransactionRepository = (*walletTxRepo)(nil)

type walletTxRepo struct{ pool *pgxpool.Pool }

func NewWalletTransactionRepo(pool *pgxpool.Pool) *walletTxRepo {
	return &walletTxRepo{pool: pool}
}

const walletTxCols = `id, wallet_id, user_id, payment_id, type, amount, description, status, created_at, updated_at`

func scanWalletTx(row pgx.Row) (*model.WalletTransaction, error) {
	t := &model.WalletTransaction{}
	if err := row.Scan(&t.ID, &t.WalletID, &t.UserID, &t.PaymentID, &t.Type, &t.Amount, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	return t, nil
}

func (r *walletTxRepo) Save(ctx context.Context, tx repository.Tx, t *model.WalletTransaction) error {
	const q = `
INSERT INTO wallet_transactions (` + walletTxCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.WalletID, t.UserID, t.PaymentID, t.Type, t.Amount, t.Description, t.Status, t.CreatedAt, t.UpdatedAt)
	return mapErr(err)
}

func (r *walletTxRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.WalletTransaction, error) {
	q := `SELECT ` + walletTxCols + ` FROM wallet_transactions WHERE payment_id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}
	return scanWalletTx(row)
}

func (r *walletTxRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.TransactionStatus) (bool, error) {
	const q = `
UPDATE wallet_transactions
   SET status = $2,
       updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status))
	if err != nil {
		return false, mapErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *walletTxRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.WalletTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + walletTxCols + ` FROM wallet_transactions WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*model.WalletTransaction
	for rows.Next() {
		t, err := scanWalletTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}
