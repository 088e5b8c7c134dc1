package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"surface-tracker/config"
	"surface-tracker/internal/api/httpapi"
	"surface-tracker/internal/api/telegram"
	"surface-tracker/internal/container"
	"surface-tracker/internal/domain/port"
	"surface-tracker/internal/infrastructure/storage"
	"surface-tracker/internal/infrastructure/vision"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	log := cfg.NewLogger()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("tracker stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Журнал событий: только диагностика
	var (
		journal port.EventJournal = storage.NopJournal{}
		opts                      = httpapi.Options{
			MaxConcurrent:  cfg.MaxConcurrentRequests,
			MaxUploadBytes: cfg.MaxUploadBytes,
		}
	)
	if cfg.JournalPath != "" {
		j, err := storage.NewSQLiteJournal(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()
		journal = j
		opts.JournalDB = j.DB()
		opts.JournalSource = "sqlite://" + j.Path()
		log.Info("journal opened", "path", j.Path())
	}

	extractor := vision.NewSIFTExtractor()
	defer extractor.Close()
	restorer := vision.NewRestorer()

	// Собираем сервисы приложения
	appContainer := container.New(container.Deps{
		Users:     storage.NewMemoryUserRepository(),
		Sessions:  storage.NewMemorySessionRepository(),
		Extractor: extractor,
		Inpainter: restorer,
		Overlay:   restorer,
		Codec:     vision.NewImageCodec(),
		Journal:   journal,
		Log:       log,
	})

	api := httpapi.NewServer(appContainer.TrackingService, appContainer.InpaintService, appContainer.Codec, log, opts)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, appContainer, log)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			log.Info("bot is running")
			return bot.Run(ctx)
		})
	} else {
		log.Info("TELEGRAM_TOKEN is empty, bot disabled")
	}

	return g.Wait()
}
