package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/hetulpatel/bqusers/internal/config"
	"github.com/hetulpatel/bqusers/internal/kafka"
	"github.com/hetulpatel/bqusers/internal/logging"
	sqlstore "github.com/hetulpatel/bqusers/internal/storage/sqlite"
	"github.com/hetulpatel/bqusers/internal/workers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[users-mirror] config: %v", err)
	}
	logging.InitFromEnv()
	if !cfg.KafkaEnabled() {
		log.Fatalf("[users-mirror] KAFKA_BROKERS is required")
	}

	store, err := sqlstore.Open(cfg.SQLitePath, cfg.Target.Dataset)
	if err != nil {
		log.Fatalf("[users-mirror] open sqlite: %v", err)
	}
	defer store.Close()
	if err := store.CreateTables(ctx, cfg.Target.Table); err != nil {
		log.Fatalf("[users-mirror] create tables: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	if err := kafka.WaitForBroker(waitCtx, cfg.KafkaBrokers); err != nil {
		log.Fatalf("[users-mirror] wait for broker: %v", err)
	}
	cancel()

	mirror := workers.NewMirror(store, cfg.Target.Dataset, cfg.Target.Table)
	newReader := func() workers.MessageReader {
		return kafka.NewReader(cfg.KafkaBrokers, cfg.UsersTopic, cfg.MirrorGroup)
	}

	log.Printf("[users-mirror] consuming %s with group %s (%d workers) into %s", cfg.UsersTopic, cfg.MirrorGroup, cfg.MirrorConcurrency, store.Path())
	workers.Run(ctx, cfg.MirrorConcurrency, newReader, mirror.Handle)
}
