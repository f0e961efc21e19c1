// The worker runs reconciliation passes on an interval, independent of the
// API server. Deployments that disable the server's built-in loop run one
// worker instance instead, so reconciliation never competes with request
// traffic for connections.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/config"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/dispatch"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/pkg/logger"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/reconcile"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/repository/postgres"
)

func main() {
	logger.Info("starting reconcile worker")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	metaDB, err := sql.Open("postgres", cfg.MetaDB.URL)
	if err != nil {
		logger.Error("connect metadata store", "error", err)
		os.Exit(1)
	}
	defer metaDB.Close()
	metaDB.SetMaxOpenConns(cfg.MetaDB.MaxOpenConns)
	metaDB.SetMaxIdleConns(cfg.MetaDB.MaxIdleConns)
	metaDB.SetConnMaxLifetime(5 * time.Minute)

	dispatchDB := metaDB
	if cfg.DispatchDB.URL != cfg.MetaDB.URL {
		dispatchDB, err = sql.Open("postgres", cfg.DispatchDB.URL)
		if err != nil {
			logger.Error("connect dispatch store", "error", err)
			os.Exit(1)
		}
		defer dispatchDB.Close()
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := metaDB.PingContext(pingCtx); err != nil {
		logger.Error("ping metadata store", "error", err)
		os.Exit(1)
	}
	logger.Info("connected", "interval", cfg.Reconcile.Interval().String())

	reconciler := reconcile.New(
		postgres.NewRunRepo(metaDB),
		postgres.NewCampaignRepo(metaDB),
		dispatch.NewStore(dispatchDB),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ticker := time.NewTicker(cfg.Reconcile.Interval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sum, err := reconciler.Run(ctx)
				if err != nil {
					logger.Error("reconcile pass", "error", err)
					continue
				}
				if sum.Reconciled > 0 || sum.DueFlipped > 0 {
					logger.Info("reconcile pass",
						"due_flipped", sum.DueFlipped,
						"reconciled", sum.Reconciled,
						"completed", sum.Completed,
						"failed", sum.Failed,
						"errors", sum.Errors)
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker")
	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}
