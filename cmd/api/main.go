package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmorales/barpos/internal/config"
	"github.com/dmorales/barpos/internal/httpx"
	kafkax "github.com/dmorales/barpos/internal/kafka"
	"github.com/dmorales/barpos/internal/pos"
	"github.com/dmorales/barpos/internal/postgres"
	"github.com/dmorales/barpos/internal/printing"
	"github.com/dmorales/barpos/internal/redisx"
	"github.com/dmorales/barpos/internal/report"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("timezone %q: %v", cfg.Timezone, err)
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per lifecycle topic
	pubCreated := kafkax.NewProducer(cfg.KafkaBrokers, pos.TopicOrderCreated, 1024)
	pubCreated.Start(ctx)
	pubPaid := kafkax.NewProducer(cfg.KafkaBrokers, pos.TopicOrderPaid, 1024)
	pubPaid.Start(ctx)
	pubPrinted := kafkax.NewProducer(cfg.KafkaBrokers, pos.TopicOrderPrinted, 1024)
	pubPrinted.Start(ctx)

	store := &pos.Repo{DB: db}
	router := httpx.NewRouter()
	h := &httpx.POSHandler{
		Store:      store,
		Redis:      rdb,
		PubCreated: pubCreated,
		PubPaid:    pubPaid,
		PubPrinted: pubPrinted,
		Spooler:    printing.LP{},
		Reporter:   &report.Reporter{Sales: store, Loc: loc},
		Printer:    cfg.PrinterName,
		Header:     cfg.TicketHeader,
		LowStock:   cfg.LowStockThreshold,
		CloseHour:  cfg.ReportCloseH,
		Service:    cfg.ServiceName,
	}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{pubCreated, pubPaid, pubPrinted} {
		p.Close()
	}
	for _, p := range []*kafkax.Producer{pubCreated, pubPaid, pubPrinted} {
		p.WaitClosed()
	}
}
