package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"truthchain/api"
	"truthchain/config"
	"truthchain/database"
	"truthchain/events"
	"truthchain/repository"
	"truthchain/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	limits := service.StakeLimits{
		Min: cfg.MinStake,
		Max: cfg.MaxStake,
	}

	ledgerService := service.NewLedgerService(uowFactory)
	userService := service.NewUserService(uowFactory, cfg.WelcomeBonus)
	stakingService := service.NewStakingService(uowFactory, ledgerService, limits)
	postService := service.NewPostService(uowFactory, ledgerService, limits)
	reconcileService := service.NewReconcileService(uowFactory, ledgerService, service.NewHTTPOracle(cfg.OracleURL))

	server := api.NewServer(stakingService, ledgerService, userService, postService, reconcileService)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":        cfg.ListenAddr,
			"environment": cfg.Environment,
		}).Info("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		db.Close()
		return fmt.Errorf("API server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown failed")
	}

	db.Close()
	log.Info("Shutdown completed")

	return nil
}
