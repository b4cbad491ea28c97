// Package worker wires and runs the reconciliation worker: the gate polling
// loop, the payment reconciler, and the maintenance schedulers.
package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	accessUsecases "github.com/tonpass-inc/tonpass/internal/application/access/usecases"
	reconcileUsecases "github.com/tonpass-inc/tonpass/internal/application/reconcile/usecases"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/cache"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/config"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/database"
	gateInfra "github.com/tonpass-inc/tonpass/internal/infrastructure/gate"
	ledgerInfra "github.com/tonpass-inc/tonpass/internal/infrastructure/ledger"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/migration"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/repository"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/scheduler"
	"github.com/tonpass-inc/tonpass/internal/shared/biztime"
	"github.com/tonpass-inc/tonpass/internal/shared/db"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the reconciliation worker",
		Long:  `Run the payment reconciliation worker: polls the gate for access requests, matches confirmed ledger transactions against pending entitlements, and activates access.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Automatically run database migrations on startup (not recommended for production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	log := logger.NewLogger()
	log.Infow("starting worker", "environment", env, "auto_migrate", autoMigrate)

	if err := biztime.Init(cfg.Server.Timezone); err != nil {
		return fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalw("failed to initialize database", "error", err)
	}
	defer database.Close()

	if autoMigrate {
		if env == "production" {
			log.Warnw("auto-migration is enabled in production environment - this is not recommended!")
		}
		migrationManager := migration.NewManager(env)
		if err := migrationManager.Migrate(database.Get(), migration.AutoMigrateModels()...); err != nil {
			log.Fatalw("auto-migration failed", "error", err)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

	// Repositories and transaction boundary
	entitlementRepo := repository.NewEntitlementRepository(database.Get(), log)
	paymentRepo := repository.NewPaymentRepository(database.Get(), log)
	requestRepo := repository.NewPendingRequestRepository(database.Get(), log)
	contractRepo := repository.NewDeployedContractRepository(database.Get(), log)
	txManager := db.NewTransactionManager(database.Get())

	// External services
	ledgerClient := ledgerInfra.NewTONCenterClient(&cfg.Ledger, log.Named("ledger"))
	gateService := gateInfra.NewGateService(&cfg.Gate, log.Named("gate"))

	// Access coordinator
	activationUC := accessUsecases.NewHandleActivationUseCase(requestRepo, gateService, log)
	accessRequestUC := accessUsecases.NewHandleAccessRequestUseCase(
		entitlementRepo,
		requestRepo,
		contractRepo,
		gateService,
		accessUsecases.HandleAccessRequestConfig{
			PriceExpected: cfg.Escrow.Price,
			ToleranceBps:  cfg.Escrow.ToleranceBps,
			RequestTTL:    time.Duration(cfg.Gate.RequestTTLHours) * time.Hour,
		},
		log,
	)
	gateHealthUC := accessUsecases.NewCheckGateHealthUseCase(gateService, log)

	// Reconciler
	accessPeriod := time.Duration(cfg.Escrow.PeriodDays) * 24 * time.Hour
	if cfg.Escrow.AccessModel == "lifetime" {
		accessPeriod = 0
	}
	reconcileUC := reconcileUsecases.NewReconcilePendingUseCase(
		entitlementRepo,
		paymentRepo,
		ledgerClient,
		txManager,
		activationUC.Execute,
		reconcileUsecases.ReconcilePendingConfig{
			LookbackWindow: time.Duration(cfg.Ledger.LookbackHours) * time.Hour,
			AccessPeriod:   accessPeriod,
		},
		log,
	)
	sweepUC := reconcileUsecases.NewSweepPendingUseCase(
		entitlementRepo,
		requestRepo,
		reconcileUsecases.SweepPendingConfig{},
		log,
	)
	statsUC := reconcileUsecases.NewContractStatsUseCase(contractRepo, paymentRepo, ledgerClient, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reconciler loop
	reconcilerScheduler := scheduler.NewReconcilerScheduler(
		reconcileUC,
		time.Duration(cfg.Ledger.PollIntervalSeconds)*time.Second,
		time.Duration(cfg.Ledger.AlertThresholdMins)*time.Minute,
		log.Named("reconciler"),
	)
	reconcilerScheduler.Start(ctx)
	defer reconcilerScheduler.Stop()

	// Maintenance jobs
	schedulerManager, err := scheduler.NewSchedulerManager(log.Named("scheduler"))
	if err != nil {
		log.Fatalw("failed to create scheduler manager", "error", err)
	}
	if err := schedulerManager.RegisterSweepJobs(scheduler.NewSweepJob(sweepUC)); err != nil {
		log.Fatalw("failed to register sweep jobs", "error", err)
	}
	if err := schedulerManager.RegisterGateHealthJobs(scheduler.NewGateHealthJob(gateHealthUC)); err != nil {
		log.Fatalw("failed to register gate health jobs", "error", err)
	}
	if err := schedulerManager.RegisterContractStatsJobs(scheduler.NewContractStatsJob(statsUC)); err != nil {
		log.Fatalw("failed to register contract stats jobs", "error", err)
	}
	schedulerManager.Start()
	defer func() {
		if err := schedulerManager.Stop(); err != nil {
			log.Errorw("failed to stop scheduler manager", "error", err)
		}
	}()

	// Gate polling
	offsetStore := cache.NewPollingOffsetStore(redisClient)
	handler := gateInfra.NewAccessRequestHandler(accessRequestUC, log)
	pollingService := gateInfra.NewPollingService(
		gateService,
		handler,
		time.Duration(cfg.Gate.PollTimeoutSecs)*time.Second,
		offsetStore,
		log.Named("polling"),
	)
	if err := pollingService.Start(ctx); err != nil {
		log.Fatalw("failed to start polling service", "error", err)
	}
	defer pollingService.Stop()

	log.Infow("worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	log.Infow("received signal, shutting down", "signal", sig)
	return nil
}
