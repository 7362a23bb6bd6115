// Package main is the entry point for Harrier, an autonomous flashloan
// strike governor. It watches public sentiment feeds, sizes flashloan
// strikes against per-network treasury balances, and learns per-source
// trust from confirmed outcomes with minimal human intervention.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/harrier/internal/clients/evmchain"
	"github.com/aristath/harrier/internal/config"
	"github.com/aristath/harrier/internal/domain"
	"github.com/aristath/harrier/internal/engine"
	"github.com/aristath/harrier/internal/orchestrator"
	"github.com/aristath/harrier/internal/planner"
	"github.com/aristath/harrier/internal/registry"
	"github.com/aristath/harrier/internal/reliability"
	"github.com/aristath/harrier/internal/scheduler"
	"github.com/aristath/harrier/internal/server"
	"github.com/aristath/harrier/internal/signals"
	"github.com/aristath/harrier/internal/trust"
	"github.com/aristath/harrier/pkg/logger"
)

func main() {
	// Load configuration first to get log level.
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Service: "harrier", Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Service: "harrier",
		Level:   cfg.LogLevel,
		Pretty:  cfg.DevMode,
	})

	log.Info().Msg("Starting Harrier")

	// Trust ledger database. The trust map is tiny but it is the one
	// piece of state that must survive restarts, so it gets the
	// full-durability profile. A corrupt file is quarantined inside
	// OpenStore and the ledger reseeds; only an unusable data directory
	// is fatal here.
	trustDB, trustRepo, err := trust.OpenStore(filepath.Join(cfg.DataDir, "trust.db"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open trust database")
	}
	defer trustDB.Close()

	trustLedger := trust.NewLedger(trustRepo, log)

	// Dial every configured network. Failures are isolated: a network
	// that cannot be reached at startup is reported and skipped, the
	// rest of the fleet proceeds without it.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dial := func(dialCtx context.Context, netCfg config.NetworkConfig) (domain.ChainClient, error) {
		return evmchain.Dial(dialCtx, netCfg.Name, netCfg.RPCURL, netCfg.ChainID,
			cfg.PrivateKey, cfg.ExecutorAddress, log)
	}
	reg := registry.New(ctx, cfg.Networks, dial, log)

	strikePlanner := planner.New(log)
	orch := orchestrator.New(strikePlanner, trustLedger, log)
	source := signals.NewSource(signals.DefaultProviders(), log)

	// HTTP status surface. Read-only; never participates in the loop.
	srv := server.New(server.Config{
		Log:            log,
		Port:           cfg.Port,
		Networks:       cfg.Networks,
		Registry:       reg,
		Trust:          trustLedger,
		TrustDB:        trustDB,
		HasCredentials: cfg.HasStrikeCredentials(),
	})
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Background maintenance: hourly WAL checkpoints, and daily off-site
	// backups when R2 is configured.
	sched := scheduler.New(log)
	if err := sched.AddJob("@hourly", scheduler.NewWALCheckpointJob(trustDB, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule WAL checkpoint job")
	}
	if cfg.R2.Enabled() {
		r2, err := reliability.NewR2Client(ctx, cfg.R2, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize R2 client")
		}
		backupSvc := reliability.NewBackupService(trustDB, r2, cfg.DataDir, log)
		if err := sched.AddJob("@daily", scheduler.NewBackupJob(backupSvc, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule backup job")
		}
		log.Info().Msg("R2 backups enabled")
	} else {
		log.Warn().Msg("R2 backups disabled - trust ledger is local only")
	}
	sched.Start()

	// Strike loop. Run blocks until the context is cancelled; missing
	// credentials are fatal before the first tick.
	eng := engine.New(engine.Config{
		Registry:       reg,
		Signals:        source,
		Orchestrator:   orch,
		TickInterval:   cfg.TickInterval,
		HasCredentials: cfg.HasStrikeCredentials(),
	}, log)

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- eng.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	case err := <-engineDone:
		if errors.Is(err, engine.ErrMissingCredentials) {
			log.Fatal().Err(err).Msg("Refusing to start strike loop")
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Strike loop failed")
		}
	}

	// Stop scheduling new ticks, then let in-flight confirmation
	// watchers finish before closing the trust database under them.
	cancel()
	select {
	case <-engineDone:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Strike loop did not stop in time")
	}

	sched.Stop()

	log.Info().Msg("Waiting for in-flight confirmations...")
	orch.WaitInFlight()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Harrier stopped")
}
