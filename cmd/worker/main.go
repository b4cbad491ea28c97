// Headless reconciler daemon. Matches confirmed ledger transactions against
// pending entitlements without touching the gate; activated subjects are
// admitted on their next knock. Use the tonpass worker command for the full
// service including gate polling.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	reconcileUsecases "github.com/tonpass-inc/tonpass/internal/application/reconcile/usecases"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/config"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/database"
	ledgerInfra "github.com/tonpass-inc/tonpass/internal/infrastructure/ledger"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/repository"
	"github.com/tonpass-inc/tonpass/internal/shared/biztime"
	"github.com/tonpass-inc/tonpass/internal/shared/db"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

func main() {
	env := "development"
	if len(os.Args) > 1 {
		env = os.Args[1]
	}
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.NewLogger()
	log.Infow("starting headless reconciler", "environment", env)

	if err := biztime.Init(cfg.Server.Timezone); err != nil {
		log.Fatalw("failed to initialize business timezone", "error", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalw("failed to initialize database", "error", err)
	}
	defer database.Close()

	entitlementRepo := repository.NewEntitlementRepository(database.Get(), log)
	paymentRepo := repository.NewPaymentRepository(database.Get(), log)
	txManager := db.NewTransactionManager(database.Get())
	ledgerClient := ledgerInfra.NewTONCenterClient(&cfg.Ledger, log.Named("ledger"))

	accessPeriod := time.Duration(cfg.Escrow.PeriodDays) * 24 * time.Hour
	if cfg.Escrow.AccessModel == "lifetime" {
		accessPeriod = 0
	}
	reconcileUC := reconcileUsecases.NewReconcilePendingUseCase(
		entitlementRepo,
		paymentRepo,
		ledgerClient,
		txManager,
		nil,
		reconcileUsecases.ReconcilePendingConfig{
			LookbackWindow: time.Duration(cfg.Ledger.LookbackHours) * time.Hour,
			AccessPeriod:   accessPeriod,
		},
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	interval := time.Duration(cfg.Ledger.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runPass := func() {
		result, err := reconcileUC.Execute(ctx)
		if err != nil {
			log.Errorw("reconcile pass failed", "error", err)
			return
		}
		if result.Activated > 0 {
			log.Infow("reconcile pass completed",
				"checked", result.PendingChecked,
				"activated", result.Activated,
			)
		}
	}

	log.Infow("reconciler started", "interval", interval)
	runPass()

	for {
		select {
		case <-ticker.C:
			runPass()
		case sig := <-sigChan:
			log.Infow("received signal, shutting down", "signal", sig)
			return
		}
	}
}
