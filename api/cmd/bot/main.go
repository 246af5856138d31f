package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-gen/api/internal/app"
	"quiz-gen/api/internal/config"
	"quiz-gen/api/internal/httpserver"
	"quiz-gen/api/internal/logger"
	"quiz-gen/api/internal/telegram"
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

	if strings.TrimSpace(cfg.TelegramBotToken) == "" {
		log.Fatal("missing required env TELEGRAM_BOT_TOKEN")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer a.Close()
	go a.PurgeLoop(ctx, cfg.JournalRetention)

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal("telegram login failed", "error", err)
	}
	bot.Debug = false
	if _, err := bot.Request(tgbotapi.NewSetMyCommands(telegram.Commands...)); err != nil {
		log.Warn("setMyCommands failed", "error", err)
	}

	r := &telegram.Router{
		Bot:      bot,
		Svc:      a.Service,
		OCR:      a.OCR,
		Log:      log.With("component", "telegram"),
		Defaults: telegram.DefaultParams,
		Timeout:  cfg.RequestTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(ctx, bot, r, mux, webhookURL, log)
	} else {
		startPollingMode(ctx, bot, r, mux, log)
	}

	srv := httpserver.New("0.0.0.0:"+cfg.Port, mux, cfg.RequestTimeout)
	if err := httpserver.Run(ctx, srv, log); err != nil {
		log.Error("http server failed", "error", err)
	}
}

func startWebhookMode(ctx context.Context, bot *tgbotapi.BotAPI, r *telegram.Router, mux *http.ServeMux, baseURL string, log *logger.Logger) {
	path := telegram.WebhookPath(bot.Token)
	wh, err := tgbotapi.NewWebhook(strings.TrimRight(baseURL, "/") + path)
	if err != nil {
		log.Fatal("webhook config failed", "error", err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal("setWebhook failed", "error", err)
	}

	updates := make(chan tgbotapi.Update, bot.Buffer)
	mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			log.Warn("bad webhook update", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		select {
		case updates <- *upd:
		case <-time.After(5 * time.Second):
			log.Warn("update dropped: handler busy", "update_id", upd.UpdateID)
		}
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				r.HandleUpdate(upd)
			}
		}
	}()
	log.Info("webhook mode", "path", path)
}

func startPollingMode(ctx context.Context, bot *tgbotapi.BotAPI, r *telegram.Router, mux *http.ServeMux, log *logger.Logger) {
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warn("deleteWebhook failed", "error", err)
	}
	go telegram.RunPolling(ctx, bot, log, r.HandleUpdate)
	log.Info("polling mode")
}
