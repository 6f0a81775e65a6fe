package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"prettify/internal/config"
	"prettify/internal/engine"
	"prettify/internal/logging"
	"prettify/source/kafka"
)

func main() {
	_ = godotenv.Load()
	logging.InitFromEnv()

	cfg, err := config.LoadDaemon()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	kafka.Register("sarama", func() kafka.Adapter { return &kafka.SaramaDriver{} })

	e, err := engine.Bootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	if err := e.Run(ctx); err != nil {
		log.Fatalf("engine: %v", err)
	}
}
