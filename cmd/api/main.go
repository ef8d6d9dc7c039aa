package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"denuncias/api/internal/app"
	"denuncias/api/internal/blob"
	"denuncias/api/internal/config"
	"denuncias/api/internal/email"
	"denuncias/api/internal/export"
	"denuncias/api/internal/observability"
	"denuncias/api/internal/search"
	"denuncias/api/internal/session"
	"denuncias/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	logger := observability.NewLogger(cfg.LogLevel, cfg.Env)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, "denuncias-api")
	if err != nil {
		logger.Fatal("tracing setup failed", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	if err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", zap.Strings("versions", applied))
	}

	dataStore := store.NewPostgresStore(db)
	deps := app.Dependencies{
		Store:    dataStore,
		Mailer:   email.NewService(emailConfig(cfg), logger),
		Exporter: export.NewService(),
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using redis for sessions")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisStore.Close()
		deps.Sessions = redisStore
	} else {
		logger.Info("using postgres for sessions")
	}

	uploadsDir := ""
	if strings.TrimSpace(cfg.S3Endpoint) != "" {
		minioStore, err := blob.NewMinioStore(ctx, blob.MinioConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			logger.Fatal("object storage setup failed", zap.Error(err))
		}
		deps.Blobs = minioStore
	} else {
		localStore, err := blob.NewLocalStore(cfg.UploadsDir)
		if err != nil {
			logger.Fatal("uploads dir setup failed", zap.Error(err))
		}
		deps.Blobs = localStore
		uploadsDir = localStore.Dir()
	}

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
	}
	deps.Search = search.NewService(meiliClient, pgfts, logger)

	service := app.New(cfg, deps, logger)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	if uploadsDir != "" {
		httpServer = httpServer.WithUploads(uploadsDir)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("denuncias api listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func emailConfig(cfg config.Config) email.Config {
	return email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}
}
