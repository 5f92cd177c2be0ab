package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmorales/barpos/internal/config"
	kafkax "github.com/dmorales/barpos/internal/kafka"
	"github.com/dmorales/barpos/internal/kitchen"
	"github.com/dmorales/barpos/internal/pos"
	"github.com/dmorales/barpos/internal/printing"
	"github.com/dmorales/barpos/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &kitchen.Service{
		Redis:       rdb,
		Spooler:     printing.LP{},
		Printer:     getenv("KITCHEN_PRINTER", "kitchen-ticket"),
		Header:      cfg.TicketHeader,
		ServiceName: cfg.ServiceName + "-kitchen",
	}

	group := getenv("KITCHEN_GROUP", "kitchen-svc")
	workers := mustAtoi(os.Getenv("KITCHEN_WORKERS"), "2")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, pos.TopicOrderCreated, workers)

	go func() {
		log.Printf("kitchen consumer started: group=%s topic=%s workers=%d", group, pos.TopicOrderCreated, workers)
		if err := cons.Start(ctx, svc.HandleOrderCreated); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
