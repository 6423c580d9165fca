package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"pagesmith/internal/config"
	"pagesmith/internal/engine"
	"pagesmith/internal/llmclient"
	"pagesmith/internal/logging"
	"pagesmith/internal/persist"
	"pagesmith/internal/pipeline"
	"pagesmith/internal/preview"
	"pagesmith/internal/publish"
	"pagesmith/internal/session"
	"pagesmith/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := logging.New(cfg.Env)

	ctx := context.Background()

	client, err := llmclient.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		logger.Fatal().Err(err).Msg("init gemini client")
	}
	defer client.Close()

	store := session.NewStore(logger)
	ledger := version.NewLedger(cfg.HistoryMax)
	pl := &pipeline.Pipeline{
		Client: client,
		Store:  store,
		Ledger: ledger,
		Width:  cfg.BatchWidth,
		Retry: llmclient.RetryPolicy{
			MaxAttempts: cfg.RetryAttempts,
			BaseDelay:   time.Duration(cfg.RetryBaseMS) * time.Millisecond,
		},
		Timeout: cfg.JobTimeout,
		Logger:  logger,
	}

	var publisher publish.Publisher
	if cfg.Publish.Enabled {
		p, err := publish.NewS3Publisher(publish.S3Config{
			Endpoint:   cfg.Publish.Endpoint,
			Region:     cfg.Publish.Region,
			AccessKey:  cfg.Publish.AccessKey,
			SecretKey:  cfg.Publish.SecretKey,
			Bucket:     cfg.Publish.Bucket,
			UseSSL:     cfg.Publish.UseSSL,
			PublicBase: cfg.Publish.PublicBase,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("publishing disabled")
		} else {
			publisher = p
		}
	}

	eng, err := engine.New(engine.Options{
		Pipeline:    pl,
		Store:       store,
		Ledger:      ledger,
		Persist:     persist.NewFromEnv(cfg.DatabaseDSN, cfg.FileDir),
		Publisher:   publisher,
		SessionsMax: cfg.SessionsMax,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init engine")
	}
	eng.Restore(ctx)

	dispatcher := preview.NewDispatcher()
	dispatcher.Handle(preview.KindImageClick, func(msg preview.Message) error {
		logger.Info().Str("artifact_id", msg.ArtifactID).Str("img_id", msg.ImgID).Msg("image selected in frame")
		return nil
	})
	dispatcher.Handle(preview.KindSiteNavigate, func(msg preview.Message) error {
		logger.Info().Str("page_id", msg.PageID).Msg("frame navigation")
		return nil
	})
	bridge := preview.NewBridge(dispatcher, logger)

	srv := &http.Server{
		Addr: cfg.Port,
		Handler: h2c.NewHandler(newRouter(&apiServer{
			engine: eng,
			bridge: bridge,
			logger: logger,
		}), &http2.Server{}),
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting api server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	eng.Close(shutdownCtx)
}
