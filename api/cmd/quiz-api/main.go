package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"quiz-gen/api/internal/app"
	"quiz-gen/api/internal/config"
	"quiz-gen/api/internal/handle"
	"quiz-gen/api/internal/httpserver"
	"quiz-gen/api/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer a.Close()
	go a.PurgeLoop(ctx, cfg.JournalRetention)

	var journal handle.ExchangeLister
	if a.Journal != nil {
		journal = a.Journal
	}
	h := handle.New(a.Service, a.OCR, journal, log.With("component", "http"), handle.Options{
		RequestTimeout: cfg.RequestTimeout,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	srv := httpserver.New(":"+cfg.Port, h.Router(), cfg.RequestTimeout)
	if err := httpserver.Run(ctx, srv, log); err != nil {
		log.Error("http server failed", "error", err)
	}
}
