package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/organicgreen/go-shop/internal/config"
	"github.com/organicgreen/go-shop/internal/httpx"
	kafkax "github.com/organicgreen/go-shop/internal/kafka"
	"github.com/organicgreen/go-shop/internal/notify"
	"github.com/organicgreen/go-shop/internal/postgres"
	"github.com/organicgreen/go-shop/internal/redisx"
	"github.com/organicgreen/go-shop/internal/shop"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatal("schema", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers for post-commit order events
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, notify.TopicOrderCreated, 1024, log)
	pCreated.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, notify.TopicOrderStatus, 1024, log)
	pStatus.Start(ctx)

	notifier := &notify.KafkaNotifier{
		Created: pCreated,
		Status:  pStatus,
		Service: cfg.ServiceName,
		Log:     log,
	}

	// Repos & coordinator
	cartStore := &shop.CartStore{DB: db}
	merger := &shop.CartMerger{DB: db, LockTimeout: cfg.LockTimeout}
	catalog := &shop.CatalogRepo{DB: db}
	orderRepo := &shop.OrderRepo{DB: db, Notifier: notifier}
	coordinator := &shop.CheckoutCoordinator{
		DB:          db,
		Profiles:    &shop.ProfileRepo{DB: db},
		Notifier:    notifier,
		Log:         log,
		OrderPrefix: cfg.OrderPrefix,
		LockTimeout: cfg.LockTimeout,
	}

	router := httpx.NewRouter()
	(&httpx.CatalogHandler{Catalog: catalog, Log: log}).Register(router)
	(&httpx.CartHandler{Cart: cartStore, Merger: merger, Log: log}).Register(router)
	(&httpx.OrdersHandler{
		Checkout: coordinator,
		Orders:   orderRepo,
		Cache:    &redisx.StatusCache{R: rdb},
		Log:      log,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	cancel() // stop producer loops; they flush their inboxes
	pCreated.WaitClosed()
	pStatus.WaitClosed()
}
