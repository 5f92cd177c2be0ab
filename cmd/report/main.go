package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmorales/barpos/internal/config"
	"github.com/dmorales/barpos/internal/pos"
	"github.com/dmorales/barpos/internal/postgres"
	"github.com/dmorales/barpos/internal/report"
)

// One-shot nightly job, fired by cron after the bar closes. An empty
// window is a quiet night, not a failure.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("timezone %q: %v", cfg.Timezone, err)
	}

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	r := &report.Reporter{
		Sales:  &pos.Repo{DB: db},
		Mailer: report.SMTPMailer{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom},
		Loc:    loc,
	}

	from, to := report.DefaultWindow(time.Now(), cfg.ReportCloseH, loc)
	log.Printf("sales report window: %s .. %s", from.Format(time.RFC3339), to.Format(time.RFC3339))

	if err := r.Send(ctx, from, to, cfg.ReportTo); err != nil {
		if errors.Is(err, pos.ErrNoSalesInWindow) {
			log.Println("no sales in window, nothing sent")
			return
		}
		log.Fatalf("report: %v", err)
	}
	log.Printf("sales report sent to %s", cfg.ReportTo)
}
