package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"coursewatch/internal/bot"
	"coursewatch/internal/catalog"
	"coursewatch/internal/config"
	"coursewatch/internal/notify"
	"coursewatch/internal/poller"
	"coursewatch/internal/storage"
	"coursewatch/internal/watch"
)

func main() {
	cfg, err := config.Load(os.Getenv("COURSEWATCH_CONFIG"))
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Error("telegram init error", "error", err)
		os.Exit(1)
	}
	logger.Info("authorized", "bot", api.Self.UserName)

	store := storage.NewFileStore(cfg.Watch.DataPath)
	registry := watch.NewRegistry(store, cfg.Watch.CourseLimit, logger)
	if err := registry.Load(); err != nil {
		// Start with an empty list rather than refuse to run.
		logger.Warn("watch list restore failed", "error", err)
	}

	client := catalog.NewClient(cfg.Catalog)
	notifier := notify.NewTelegram(api, cfg.Watch.UrgentRepeats, cfg.Watch.UrgentDelay, logger)
	p := poller.New(registry, client, notifier, cfg.Watch.PollInterval, cfg.Watch.FetchDelay, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	h := bot.NewHandlers(api, client, registry, logger)
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			api.StopReceivingUpdates()
			<-done
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			go h.Handle(ctx, update)
		}
	}
}

// newLogger builds the process logger from config and installs it as
// the slog default.
func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
