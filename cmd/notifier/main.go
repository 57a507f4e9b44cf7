package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/organicgreen/go-shop/internal/config"
	kafkax "github.com/organicgreen/go-shop/internal/kafka"
	"github.com/organicgreen/go-shop/internal/notify"
	"github.com/organicgreen/go-shop/internal/redisx"
)

// The notifier consumes order-created events and delivers admin summaries to
// Telegram. Delivery is best effort; the shop never waits for it.
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

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	sender := &notify.TelegramSender{
		Token:      cfg.TelegramToken,
		AdminChats: cfg.TelegramAdmins,
		Log:        log,
	}

	handler := func(ctx context.Context, m kafkago.Message) error {
		var env notify.Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			log.Warn("bad envelope", zap.Error(err))
			return nil // unparseable, skip rather than redeliver forever
		}
		if env.EventType != notify.EventOrderCreated {
			return nil
		}

		// dedup by event id: redeliveries must not re-ping the admins
		dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
		if exists, _ := redisx.Exists(ctx, rdb, dkey); exists {
			return nil
		}

		payload, err := kafkax.UnwrapPayload[notify.OrderCreatedPayload](env.Payload)
		if err != nil {
			log.Warn("bad payload", zap.Error(err))
			return nil
		}

		sender.SendNewOrder(ctx, payload)
		_ = rdb.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
		return nil
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, notify.TopicOrderCreated, cfg.NotifierWorkers, log)
	go func() {
		log.Info("notifier consumer started",
			zap.String("group", cfg.NotifierGroup),
			zap.String("topic", notify.TopicOrderCreated),
			zap.Int("workers", cfg.NotifierWorkers))
		if err := cons.Start(ctx, handler); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down notifier")
	cancel()
}
