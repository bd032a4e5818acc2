// Command ledgercheck compares every wallet balance with the sum of its
// completed ledger entries. It exits 2 when any wallet disagrees.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"store-billing/internal/config"
	"store-billing/internal/domain/ports/repository"
	pg "store-billing/internal/infra/db/postgres"
	"store-billing/internal/infra/logging"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	limit := flag.Int("limit", 100, "maximum mismatches to report")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	mismatches, err := pg.NewWalletRepo(pool).FindLedgerMismatches(ctx, repository.NoTX, *limit)
	if err != nil {
		logger.Error().Err(err).Msg("ledger check failed")
		pool.Close()
		os.Exit(1)
	}
	for _, m := range mismatches {
		logger.Warn().
			Str("wallet_id", m.WalletID).
			Str("user_id", m.UserID).
			Int64("balance", m.Balance).
			Int64("ledger_balance", m.LedgerBalance).
			Int64("drift", m.Balance-m.LedgerBalance).
			Msg("wallet balance disagrees with ledger")
	}
	if len(mismatches) > 0 {
		pool.Close()
		os.Exit(2)
	}
	logger.Info().Msg("ledger consistent")
}
