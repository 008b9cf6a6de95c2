package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-smartorder/internal/auth"
	"github.com/ariefcatur/go-smartorder/internal/cache"
	"github.com/ariefcatur/go-smartorder/internal/catalog"
	"github.com/ariefcatur/go-smartorder/internal/config"
	"github.com/ariefcatur/go-smartorder/internal/httpclient"
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
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logging.MustNewLogger(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "smartorder")

	// Orders store
	var repo orders.Repository = orders.NewMemoryRepository()
	if cfg.PostgresDSN != "" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("db_connect_failed", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db, postgres.SchemaOrders, postgres.SchemaOrderItems); err != nil {
			log.Fatal("db_migrate_failed", zap.Error(err))
		}
		repo = &orders.PGRepository{DB: db}
	} else {
		log.Warn("postgres_disabled_using_memory_store")
	}

	// Cache
	var c cache.Cache = cache.Nop{}
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		c = cache.NewRedis(rdb)
	}
	rt := cache.NewReadThrough(c, cfg.CacheTTL, log, m.CacheLookups)

	deps := orders.Deps{
		Repo:        repo,
		Catalog:     &catalog.Cached{Next: catalog.NewClient(httpclient.New(cfg.CatalogBaseURL, cfg.UpstreamTimeout)), Cache: rt},
		Ledger:      inventory.NewClient(httpclient.New(cfg.InventoryBaseURL, cfg.UpstreamTimeout)),
		Cache:       rt,
		Log:         log,
		Metrics:     m,
		ServiceName: cfg.ServiceName,
	}

	// Events
	var producers []*kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		newProducer := func(topic string) *kafkax.Producer {
			p := kafkax.NewProducer(cfg.KafkaBrokers, topic, 1024, log)
			p.Start(ctx)
			producers = append(producers, p)
			return p
		}
		deps.Created = newProducer(orders.TopicOrderCreated)
		deps.Canceled = newProducer(orders.TopicOrderCanceled)
		deps.ReleaseRetry = newProducer(orders.TopicStockReleaseRetry)
	} else {
		log.Warn("kafka_disabled_events_off")
	}

	router := httpx.NewRouter(log, auth.Middleware(auth.NewVerifier(cfg.JWTSecret)))
	router.Handle("/metrics", m.Handler())
	(&httpx.OrdersHandler{Orders: orders.NewOrchestrator(deps), Log: log}).Register(router)

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
		log.Info("shutting_down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		log.Error("server_exit", zap.Error(err))
	}

	// No request can publish any more; flush what is queued.
	for _, p := range producers {
		p.Close()
	}
	for _, p := range producers {
		p.WaitClosed()
	}
}
