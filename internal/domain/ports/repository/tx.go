package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside one database transaction and hands the tx
// handle to repositories through the Tx argument.
//
// Repositories accept a nil Tx and fall back to the pool. When a pgx.Tx is passed,
// reads that precede a write add FOR UPDATE.
//
// Usage:
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		w, err := wallets.FindByUserID(ctx, tx, userID)
//		...
//		return err
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
