package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/api"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/config"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/dispatch"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/fieldmap"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/personalize"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/pkg/distlock"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/pkg/progress"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/reconcile"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/repository/postgres"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/service/campaign"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

func openDB(name string, c config.DBConfig) (*sql.DB, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("%s: no database URL configured", name)
	}
	db, err := sql.Open("postgres", c.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%s: ping: %w", name, err)
	}
	return db, nil
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	metaDB, err := openDB("meta_db", cfg.MetaDB)
	if err != nil {
		log.Fatalf("Failed to connect metadata store: %v", err)
	}
	defer metaDB.Close()

	dispatchDB := metaDB
	if cfg.DispatchDB.URL != cfg.MetaDB.URL {
		dispatchDB, err = openDB("dispatch_db", cfg.DispatchDB)
		if err != nil {
			log.Fatalf("Failed to connect dispatch store: %v", err)
		}
		defer dispatchDB.Close()
	}

	// Redis is optional: without it, locks fall back to Postgres advisory
	// locks and edit progress is not published.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("[main] redis unavailable (%v), falling back to advisory locks", err)
			redisClient = nil
		}
	}

	campaignRepo := postgres.NewCampaignRepo(metaDB)
	runRepo := postgres.NewRunRepo(metaDB)
	targetRepo := postgres.NewTargetRepo(metaDB)
	unsubRepo := postgres.NewUnsubscribeRepo(metaDB)
	callbackRepo := postgres.NewCallbackRepo(metaDB)

	writer := dispatch.NewWriter(dispatchDB, cfg.Campaign.InsertBatchSize,
		cfg.Campaign.WriteWorkers, cfg.Campaign.SplitInterval())
	queueStore := dispatch.NewStore(dispatchDB)

	catalog := fieldmap.Compile(nil)
	engine := personalize.NewEngine(catalog)

	var progressCache campaign.ProgressCache
	if redisClient != nil {
		progressCache = progress.NewCache(redisClient, cfg.Campaign.ProgressTTL())
	}

	svc := campaign.NewService(campaign.Deps{
		Repo:      campaignRepo,
		Runs:      runRepo,
		Targets:   targetRepo,
		Writer:    writer,
		Queue:     queueStore,
		Callbacks: callbackRepo,
		Progress:  progressCache,
		Engine:    engine,
		NewLock: func(key string) distlock.DistLock {
			return distlock.NewLock(redisClient, metaDB, key, 5*time.Minute)
		},
	}, campaign.Options{
		LockWindow:      cfg.Campaign.LockWindow(),
		EditBatchSize:   cfg.Campaign.EditBatchSize,
		DefaultCallback: cfg.Campaign.DefaultCallback,
	})

	reconciler := reconcile.New(runRepo, campaignRepo, queueStore)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Reconcile.Enabled {
		go func() {
			ticker := time.NewTicker(cfg.Reconcile.Interval())
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := reconciler.Run(ctx); err != nil {
						log.Printf("[main] reconcile pass: %v", err)
					}
				}
			}
		}()
		log.Printf("Reconciler running every %s", cfg.Reconcile.Interval())
	}

	router := api.SetupRoutes(&api.Handlers{
		Campaigns:    svc,
		Unsubscribes: unsubRepo,
		Fields:       catalog,
		Reconciler:   reconciler,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port),
		Handler: router,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
