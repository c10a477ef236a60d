package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/prok/internal/api/handlers/media"
	posthandler "github.com/aliskhannn/prok/internal/api/handlers/post"
	profilehandler "github.com/aliskhannn/prok/internal/api/handlers/profile"
	userhandler "github.com/aliskhannn/prok/internal/api/handlers/user"
	"github.com/aliskhannn/prok/internal/api/router"
	"github.com/aliskhannn/prok/internal/api/server"
	"github.com/aliskhannn/prok/internal/auth"
	"github.com/aliskhannn/prok/internal/config"
	"github.com/aliskhannn/prok/internal/infra/kafka/consumer"
	"github.com/aliskhannn/prok/internal/infra/kafka/producer"
	imagemsg "github.com/aliskhannn/prok/internal/kafka/handlers/image"
	"github.com/aliskhannn/prok/internal/metrics"
	"github.com/aliskhannn/prok/internal/model"
	"github.com/aliskhannn/prok/internal/processor"
	postrepo "github.com/aliskhannn/prok/internal/repository/post"
	profilerepo "github.com/aliskhannn/prok/internal/repository/profile"
	userrepo "github.com/aliskhannn/prok/internal/repository/user"
	"github.com/aliskhannn/prok/internal/retriever"
	"github.com/aliskhannn/prok/internal/sanitizer"
	postsvc "github.com/aliskhannn/prok/internal/service/post"
	profilesvc "github.com/aliskhannn/prok/internal/service/profile"
	"github.com/aliskhannn/prok/internal/service/upload"
	usersvc "github.com/aliskhannn/prok/internal/service/user"
	"github.com/aliskhannn/prok/internal/storage/file"
	"github.com/aliskhannn/prok/internal/storage/mirror"
	"github.com/aliskhannn/prok/internal/validator"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger, pick up a local .env and load application configuration.
	zlog.Init()
	if err := godotenv.Load(); err != nil {
		zlog.Logger.Info().Msg("no .env file, using process environment")
	}
	cfg := config.MustLoad("./config/config.yml")

	// Connect to PostgreSQL (master and slaves).
	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	// Collect slave DSNs for replica connections.
	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Retry strategy for Kafka.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Media pipeline: local storage, validation, naming, transcoding.
	storage := file.NewStorage(cfg.Upload.StorageRoot)
	namespace := model.NewNamespace(cfg.Upload.Subfolders, cfg.Upload.PublicSubfolders)
	imageProcessor := processor.New(storage, cfg.Upload)

	var (
		uploads *upload.Service
		p       *producer.Producer
	)
	if cfg.Kafka.Enabled {
		p = producer.New(&cfg.Kafka, strategy)
		uploads = upload.NewService(validator.New(cfg.Upload), sanitizer.New(cfg.Upload), storage, imageProcessor, namespace, p)
	} else {
		uploads = upload.NewService(validator.New(cfg.Upload), sanitizer.New(cfg.Upload), storage, imageProcessor, namespace, nil)
	}

	obs, err := metrics.NewObserver(nil)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to register metrics")
	}
	uploads.WithObserver(obs)

	// Repositories and services.
	users := userrepo.NewRepository(db)
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	userService := usersvc.NewService(users, tokens)
	profileService := profilesvc.NewService(profilerepo.NewRepository(db), uploads)
	postService := postsvc.NewService(postrepo.NewRepository(db), uploads)
	images := retriever.New(cfg.Upload, namespace, users)

	// Mirror consumer: replicates stored images into the object storage bucket.
	var (
		wg sync.WaitGroup
		c  *consumer.Consumer
	)
	if cfg.Kafka.Enabled && cfg.Mirror.Enabled {
		bucket, err := mirror.NewStorage(ctx, cfg.Mirror.Endpoint, cfg.Mirror.AccessKey, cfg.Mirror.SecretKey, cfg.Mirror.BucketName, cfg.Mirror.UseSSL)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to mirror storage")
		}

		c = consumer.New(&cfg.Kafka, strategy, imagemsg.NewEventHandler(bucket, storage))
		wg.Add(1)
		go c.Consume(ctx, &wg)
	}

	// HTTP handlers and router.
	r := router.Setup(router.Handlers{
		User:    userhandler.NewHandler(userService),
		Profile: profilehandler.NewHandler(profileService, cfg.Upload.MaxContentLength),
		Post:    posthandler.NewHandler(postService, cfg.Upload.MaxContentLength),
		Media:   media.NewHandler(uploads, images, cfg.Upload.MaxContentLength),
	}, tokens, cfg.Server.AllowedOrigins)

	// Start HTTP server in a separate goroutine.
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.HTTPPort).Msg("starting server")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Wait for the mirror consumer goroutine to finish.
	wg.Wait()

	// Close master and slave databases.
	if err := db.Master.Close(); err != nil {
		zlog.Logger.Printf("failed to close master DB: %v", err)
	}
	for i, s := range db.Slaves {
		if err := s.Close(); err != nil {
			zlog.Logger.Printf("failed to close slave DB %d: %v", i, err)
		}
	}

	// Close Kafka producer and consumer clients.
	if p != nil {
		if err := p.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
		}
	}
	if c != nil {
		if err := c.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
		}
	}
}
