// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"personal-vault/internal/config"
	pg "personal-vault/internal/infra/db/postgres"
	"personal-vault/internal/infra/logging"
	"personal-vault/internal/infra/metrics"
	red "personal-vault/internal/infra/redis"
	"personal-vault/internal/infra/web"
	"personal-vault/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logging)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	dedupStore := red.NewDedupStore(redisClient)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	productRepo := pg.NewProductRepo(pool)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	txnRepo := pg.NewTransactionRepo(pool)
	historyRepo := pg.NewHistoryRepo(pool)

	// ---- Use cases ----
	normalizer := usecase.NewNormalizer(productRepo, cfg.Billing.CatalogSync, logger)
	syncUC := usecase.NewSyncUC(txManager, subRepo, invoiceRepo, txnRepo, historyRepo, dedupStore, normalizer, cfg.Billing, logger)
	queryUC := usecase.NewQueryUC(subRepo, productRepo, invoiceRepo, txnRepo, historyRepo, logger)

	// ---- HTTP server ----
	auth := web.NewAuthenticator(cfg.Auth.JWTSecret)
	server := web.NewServer(cfg.Server, cfg.Billing, auth, normalizer, syncUC, queryUC, logger)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Subscription status gauge ----
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				counts, err := subRepo.CountByStatus(ctx, nil)
				if err != nil {
					logger.Warn().Err(err).Msg("subscription gauge refresh failed")
					continue
				}
				metrics.SetSubscriptionsTotal(counts)
			}
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
