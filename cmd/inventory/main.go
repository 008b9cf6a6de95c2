package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-smartorder/internal/auth"
	"github.com/ariefcatur/go-smartorder/internal/config"
	"github.com/ariefcatur/go-smartorder/internal/httpx"
	"github.com/ariefcatur/go-smartorder/internal/inventory"
	kafkax "github.com/ariefcatur/go-smartorder/internal/kafka"
	"github.com/ariefcatur/go-smartorder/internal/logging"
	"github.com/ariefcatur/go-smartorder/internal/metrics"
	"github.com/ariefcatur/go-smartorder/internal/orders"
	"github.com/ariefcatur/go-smartorder/internal/postgres"
	"github.com/ariefcatur/go-smartorder/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if os.Getenv("HTTP_ADDR") == "" {
		cfg.HTTPAddr = ":8082"
	}
	if os.Getenv("SERVICE_NAME") == "" {
		cfg.ServiceName = "inventory"
	}

	log := logging.MustNewLogger(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "smartorder")

	var store inventory.Store = inventory.NewMemoryStore()
	if cfg.PostgresDSN != "" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("db_connect_failed", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db, postgres.SchemaInventory); err != nil {
			log.Fatal("db_migrate_failed", zap.Error(err))
		}
		store = &inventory.PGStore{DB: db}
	} else {
		log.Warn("postgres_disabled_using_memory_store")
	}
	ledger := inventory.NewLedger(store, log, m.LedgerOps)

	router := httpx.NewRouter(log, auth.Middleware(auth.NewVerifier(cfg.JWTSecret)))
	router.Handle("/metrics", m.Handler())
	(&httpx.InventoryHandler{Ledger: ledger, Log: log}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http_listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	// Release retries queued by the order service.
	if len(cfg.KafkaBrokers) > 0 {
		var rdb redis.Cmdable
		if cfg.RedisAddr != "" {
			client := redisx.New(cfg.RedisAddr)
			defer client.Close()
			rdb = client
		} else {
			log.Warn("redis_disabled_retry_dedup_off")
		}
		svc := &inventory.RetryService{Ledger: ledger, Redis: rdb, Log: log, ServiceName: cfg.ServiceName}
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ReleaseRetryGroup, orders.TopicStockReleaseRetry, cfg.ReleaseRetryWorkers, log)
		g.Go(func() error {
			log.Info("retry_consumer_started", zap.String("group", cfg.ReleaseRetryGroup), zap.Int("workers", cfg.ReleaseRetryWorkers))
			return cons.Start(gctx, svc.HandleReleaseRetry)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server_exit", zap.Error(err))
	}
}
