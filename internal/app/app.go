// Package app wires the full service together and runs it.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"dubforge/api"
	"dubforge/automation"
	"dubforge/config"
	"dubforge/editor"
	"dubforge/fetch"
	apphttp "dubforge/http"
	"dubforge/internal/retry"
	"dubforge/objectstore"
	"dubforge/pdf"
	"dubforge/storage"
	"dubforge/tts"
)

// Run starts the API server and job workers and blocks until SIGINT or
// SIGTERM, then shuts everything down gracefully.
func Run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewJSONStore(cfg.DataFile)
	if err != nil {
		return err
	}
	defer store.Close()

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return err
	}

	httpCfg := apphttp.DefaultConfig()
	httpCfg.Retry = retry.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		Multiplier:     cfg.BackoffMultiplier,
		JitterFraction: 0.2,
	}
	client := apphttp.New(httpCfg)
	defer client.Close()

	fetcher := fetch.NewFetcher(buildStrategies(cfg, client, logger)...)

	tts.Register(tts.NewFalProvider(tts.FalConfig{
		Endpoint:       cfg.TTSEndpoint,
		APIKey:         cfg.TTSAPIKey,
		CostPer1kChars: cfg.TTSCostPer1kChars,
	}, client))
	tts.Register(tts.NewLocalProvider(tts.LocalConfig{}))

	queue, err := newQueue(cfg)
	if err != nil {
		return err
	}
	defer queue.Close()

	provider, err := tts.Get("fal")
	if err != nil {
		return err
	}

	stages := automation.DubStages(automation.PipelineConfig{
		Fetcher:    fetcher,
		Provider:   provider,
		Objects:    objects,
		FfmpegPath: cfg.FfmpegPath,
	})
	dispatcher := automation.NewDispatcher(store, queue, stages, cfg.Workers, logger)
	if err := dispatcher.Start(ctx); err != nil {
		return err
	}
	defer dispatcher.Stop()

	srv := api.NewServer(api.Options{
		Editor:     editor.NewService(store, fetcher, logger),
		PDF:        pdf.NewService(store),
		Objects:    objects,
		Dispatcher: dispatcher,
		Jobs:       store,
		Uploads: api.UploadLimits{
			MaxBytes:     cfg.MaxUploadBytes,
			AllowedTypes: cfg.AllowedUploadTypes,
		},
		Logger: logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func newObjectStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	if cfg.ObjectStore == "minio" {
		return objectstore.NewMinioStore(ctx, cfg.Minio)
	}
	return objectstore.NewLocalStore(cfg.UploadDir)
}

func newQueue(cfg *config.Config) (automation.Queue, error) {
	if cfg.AMQPURL != "" {
		return automation.NewRabbitMQQueue(cfg.AMQPURL, "")
	}
	return automation.NewMemoryQueue(0), nil
}

func buildStrategies(cfg *config.Config, client *apphttp.Client, logger *zap.Logger) []fetch.Strategy {
	strategies := []fetch.Strategy{
		fetch.NewOEmbedStrategy(client),
		fetch.NewPlayerStrategy(nil),
		fetch.NewYtdlpStrategy(cfg.YtdlpPath, cfg.YtdlpTimeout),
	}
	if cfg.YouTubeAPIKey != "" {
		dataAPI, err := fetch.NewDataAPIStrategy(cfg.YouTubeAPIKey, 0)
		if err != nil {
			logger.Warn("data api strategy disabled", zap.Error(err))
		} else {
			strategies = append(strategies, dataAPI)
		}
	}
	return strategies
}
