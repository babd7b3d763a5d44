package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"spendtrack/internal/cli"
	apphttp "spendtrack/internal/http"
	applog "spendtrack/internal/log"
)

func main() {
	logger := cli.SetupLogger("spendtrack")
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	srv := apphttp.NewServer(cfg, repo, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start()
	})

	// Expired sessions are swept periodically so the table does not grow
	// without bound.
	g.Go(func() error {
		workerLogger := logger.WithComponent(applog.ComponentWorker)
		ticker := time.NewTicker(cfg.SessionCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				removed, err := repo.DeleteExpiredSessions(gctx)
				if err != nil {
					workerLogger.Error("Session cleanup failed", "error", err)
					continue
				}
				if removed > 0 {
					workerLogger.Info("Expired sessions removed", "count", removed)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
