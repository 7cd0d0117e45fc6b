package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/hetulpatel/bqusers/internal/cache"
	"github.com/hetulpatel/bqusers/internal/config"
	"github.com/hetulpatel/bqusers/internal/credentials"
	"github.com/hetulpatel/bqusers/internal/demo"
	"github.com/hetulpatel/bqusers/internal/kafka"
	"github.com/hetulpatel/bqusers/internal/logging"
	sqlstore "github.com/hetulpatel/bqusers/internal/storage/sqlite"
	"github.com/hetulpatel/bqusers/internal/users"
	"github.com/hetulpatel/bqusers/internal/warehouse"
	"github.com/hetulpatel/bqusers/internal/warehouse/bigquery"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[bq-demo] config: %v", err)
	}
	logging.InitFromEnv()

	wh := mustWarehouse(ctx, cfg)
	defer wh.Close()

	deps := demo.Deps{
		Warehouse:  wh,
		Generator:  users.NewGenerator(cfg.Seed),
		Target:     cfg.Target,
		RowLimit:   cfg.RowLimit,
		UsersCount: cfg.UsersCount,
	}

	if cfg.KafkaEnabled() {
		if writer := setupWriter(ctx, cfg.KafkaBrokers, cfg.UsersTopic); writer != nil {
			defer writer.Close()
			deps.Publisher = writer
		}
	}
	if cfg.RedisEnabled() {
		averages, err := cache.NewRedisAverageCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.AverageTTL, "")
		if err != nil {
			log.Printf("[bq-demo] average cache disabled: %v", err)
		} else {
			defer averages.Close()
			deps.Averages = averages
		}
	}

	if _, err := demo.Run(ctx, deps); err != nil {
		log.Fatalf("[bq-demo] %v", err)
	}
}

func mustWarehouse(ctx context.Context, cfg config.Config) warehouse.Warehouse {
	switch cfg.Backend {
	case config.BackendSQLite:
		store, err := sqlstore.Open(cfg.SQLitePath, cfg.Target.Dataset)
		if err != nil {
			log.Fatalf("[bq-demo] open sqlite: %v", err)
		}
		return store
	default:
		creds, err := credentials.Load(cfg.KeyPath)
		if err != nil {
			log.Fatalf("[bq-demo] load credentials %s: %v", cfg.KeyPath, err)
		}
		client, err := bigquery.New(ctx, creds)
		if err != nil {
			log.Fatalf("[bq-demo] %v", err)
		}
		return client
	}
}

func setupWriter(ctx context.Context, brokers []string, topic string) *kafkago.Writer {
	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()
	if err := kafka.WaitForBroker(waitCtx, brokers); err != nil {
		log.Printf("[bq-demo] kafka unavailable: %v", err)
		return nil
	}
	ensureCtx, cancelEnsure := context.WithTimeout(ctx, 30*time.Second)
	if err := kafka.EnsureTopic(ensureCtx, brokers, topic); err != nil {
		log.Printf("[bq-demo] ensure topic warning: %v", err)
	}
	cancelEnsure()
	return kafka.NewWriter(brokers, topic)
}
