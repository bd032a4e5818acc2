package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"store-billing/internal/domain"
	"store-billing/internal/domain/model"
	"store-billing/internal/domain/ports/repository"
)

var _ repository.WalletRepository = (*walletRepo)(nil)

type walletRepo struct{ pool *pgxpool.Pool }

func NewWalletRepo(pool *pgxpool.Pool) *walletRepo {
	return &walletRepo{pool: pool}
}

const walletCols = `id, user_id, balance, currency, created_at, updated_at`

func scanWallet(row pgx.Row) (*model.Wallet, error) {
	w := &model.Wallet{}
	if err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	return w, nil
}

// GetOrCreate inserts an empty wallet if the user has none, then reads it back.
// ON CONFLICT makes concurrent first requests converge on one row.
func (r *walletRepo) GetOrCreate(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	w, err := model.NewWallet(userID)
	if err != nil {
		return nil, err
	}
	const ins = `
INSERT INTO wallets (id, user_id, balance, currency, created_at, updated_at)
VALUES ($1,$2,0,$3,$4,$4)
ON CONFLICT (user_id) DO NOTHING;`
	if _, err := execSQL(ctx, r.pool, tx, ins, w.ID, w.UserID, w.Currency, w.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return r.FindByUserID(ctx, tx, userID)
}

func (r *walletRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	q := `SELECT ` + walletCols + ` FROM wallets WHERE user_id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanWallet(row)
}

func (r *walletRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Wallet, error) {
	q := `SELECT ` + walletCols + ` FROM wallets WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanWallet(row)
}

// DebitIfSufficient is a single conditional UPDATE; two concurrent debits can
// never both pass the balance check.
func (r *walletRepo) DebitIfSufficient(ctx context.Context, tx repository.Tx, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	const q = `
UPDATE wallets
   SET balance = balance - $2,
       updated_at = NOW()
 WHERE user_id = $1
   AND balance >= $2
RETURNING balance;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, amount)
	if err != nil {
		return 0, err
	}
	var bal int64
	if err := row.Scan(&bal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrInsufficientBalance
		}
		return 0, domain.ErrOperationFailed
	}
	return bal, nil
}

// Credit treats a NULL balance as zero.
func (r *walletRepo) Credit(ctx context.Context, tx repository.Tx, walletID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	const q = `
UPDATE wallets
   SET balance = COALESCE(balance, 0) + $2,
       updated_at = NOW()
 WHERE id = $1
RETURNING balance;`
	row, err := pickRow(ctx, r.pool, tx, q, walletID, amount)
	if err != nil {
		return 0, err
	}
	var bal int64
	if err := row.Scan(&bal); err != nil {
		return 0, mapScanErr(err)
	}
	return bal, nil
}

func (r *walletRepo) FindLedgerMismatches(ctx context.Context, tx repository.Tx, limit int) ([]repository.LedgerMismatch, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT w.id, w.user_id, w.balance, COALESCE(l.total, 0)
  FROM wallets w
  LEFT JOIN (
        SELECT wallet_id,
               SUM(CASE WHEN type = 'charge' THEN amount ELSE -amount END) AS total
          FROM wallet_transactions
         WHERE status = 'completed'
         GROUP BY wallet_id
       ) l ON l.wallet_id = w.id
 WHERE w.balance <> COALESCE(l.total, 0)
 ORDER BY w.user_id
 LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []repository.LedgerMismatch
	for rows.Next() {
		var m repository.LedgerMismatch
		if err := rows.Scan(&m.WalletID, &m.UserID, &m.Balance, &m.LedgerBalance); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}
