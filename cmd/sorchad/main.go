// Command sorchad runs a single Sorcha validator node: the HTTP API, the
// periodic docket-sealing loop, and (when SORCHA_DATABASE_URL is set) the
// Postgres-backed repository and wallet directory.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/StuartF303/sorcha/pkg/config"
	"github.com/StuartF303/sorcha/pkg/did"
	"github.com/StuartF303/sorcha/pkg/ledger"
	"github.com/StuartF303/sorcha/pkg/metrics"
	"github.com/StuartF303/sorcha/pkg/registration"
	"github.com/StuartF303/sorcha/pkg/server"
	"github.com/StuartF303/sorcha/pkg/store"
	"github.com/StuartF303/sorcha/pkg/validator"
)

func main() {
	logger := log.New(log.Writer(), "[sorchad] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	if cfg.BootstrapFile != "" {
		bootstrap, err := config.LoadBootstrap(cfg.BootstrapFile)
		if err != nil {
			logger.Fatalf("load bootstrap file: %v", err)
		}
		logger.Printf("loaded bootstrap for environment %q (%d tenant(s))", bootstrap.Environment, len(bootstrap.Tenants))
	}

	repo, wallets, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatalf("open storage: %v", err)
	}
	defer closeStore()

	signer, err := registration.LoadOrGenerateFileSigner(cfg.SystemWalletPath)
	if err != nil {
		logger.Fatalf("load system wallet: %v", err)
	}

	m := metrics.New()

	mempool := validator.NewMempool()
	docketBuilder := validator.NewDocketBuilder(mempool, repo).WithObserver(m)
	orchestrator := registration.NewOrchestrator(signer, mempool, repo, &registration.Config{
		TTL:    cfg.PendingRegistrationTTL,
		Logger: log.New(log.Writer(), "[registration] ", log.LstdFlags),
	}).WithObserver(m)
	resolver := did.NewResolver(wallets, repo)

	router := server.NewRouter(server.Dependencies{
		Repo:         repo,
		Orchestrator: orchestrator,
		Resolver:     resolver,
		Mempool:      mempool,
		Logger:       log.New(log.Writer(), "[server] ", log.LstdFlags),
	})

	apiServer := &http.Server{Addr: cfg.ListenAddr, Handler: router}
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler()}

	ctx, cancel := context.WithCancel(context.Background())

	go runSealingLoop(ctx, docketBuilder, mempool, cfg.DocketInterval, logger)
	go runExpiredRegistrationSweep(ctx, orchestrator, cfg.DocketInterval, logger)

	go func() {
		logger.Printf("API listening on %s", cfg.ListenAddr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("API server: %v", err)
		}
	}()
	go func() {
		logger.Printf("metrics listening on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("metrics server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("API server shutdown error: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("metrics server shutdown error: %v", err)
	}
	logger.Println("stopped")
}

// openStore returns the Postgres-backed repository and wallet directory when
// SORCHA_DATABASE_URL is set, or in-memory equivalents otherwise — the
// in-memory path exists for local development and tests, never production.
func openStore(cfg *config.Config, logger *log.Logger) (ledger.RegisterRepository, did.WalletStore, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Println("SORCHA_DATABASE_URL not set, using in-memory storage")
		return ledger.NewMemStore(), did.NewMemWalletStore(), func() {}, nil
	}

	client, err := store.NewClient(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := client.MigrateUp(ctx); err != nil {
		client.Close()
		return nil, nil, nil, err
	}
	return store.NewPostgres(client), store.NewWalletDirectory(client), func() { client.Close() }, nil
}

// runSealingLoop periodically seals every register holding pending
// transactions into its next docket; an empty register's mempool is a no-op
// for DocketBuilder.Seal, so this loop only pays for registers with work.
func runSealingLoop(ctx context.Context, builder *validator.DocketBuilder, mempool *validator.Mempool, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, registerID := range mempool.RegisterIDs() {
				if _, err := builder.Seal(ctx, registerID); err != nil {
					logger.Printf("seal register %s: %v", registerID, err)
				}
			}
		}
	}
}

// runExpiredRegistrationSweep periodically clears pending registrations past
// their TTL so a stalled Finalize never keeps state alive indefinitely.
func runExpiredRegistrationSweep(ctx context.Context, orchestrator *registration.Orchestrator, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := orchestrator.CleanupExpired(time.Now()); removed > 0 {
				logger.Printf("swept %d expired pending registration(s)", removed)
			}
		}
	}
}
