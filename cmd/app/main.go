package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dmarukhin/tasknote-api/internal/auth"
	"github.com/dmarukhin/tasknote-api/internal/blob"
	"github.com/dmarukhin/tasknote-api/internal/config"
	"github.com/dmarukhin/tasknote-api/internal/directory"
	"github.com/dmarukhin/tasknote-api/internal/handler"
	"github.com/dmarukhin/tasknote-api/internal/metrics"
	"github.com/dmarukhin/tasknote-api/internal/repo"
	"github.com/dmarukhin/tasknote-api/internal/service"
	"github.com/dmarukhin/tasknote-api/internal/worker"
)

func main() {
	godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to Database.")
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal("Failed to ping the Database.")
	}
	logger.Info("Successfully connected to the Database!")

	store := repo.NewStore(pool)

	blobStore, err := blob.NewMinioStore(cfg.BlobEndpoint, cfg.BlobAccessKey, cfg.BlobSecretKey, cfg.BlobBucket, cfg.BlobPublicURL, cfg.BlobUseSSL)
	if err != nil {
		logger.Fatal("Failed to build blob store client", zap.Error(err))
	}
	if err := blobStore.EnsureBucket(context.Background()); err != nil {
		logger.Fatal("Failed to prepare blob bucket", zap.Error(err))
	}

	var keys auth.KeySource
	if cfg.JWKSURL != "" {
		keys = auth.NewJWKS(cfg.JWKSURL)
	} else {
		keys = auth.StaticSecret(cfg.JWTSecret)
	}

	taskService := service.NewTaskService(store, blobStore, logger)
	taskHandler := handler.NewTaskHandler(taskService, logger)
	statusHandler := handler.NewStatusHandler(store, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/status", statusHandler.Status)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(keys, cfg.JWTIssuer, cfg.JWTAudience, logger))

		r.Get("/task/getAll", taskHandler.List)
		r.Get("/task/{id}", taskHandler.Get)
		r.Post("/task", taskHandler.Create)
		r.Put("/task", taskHandler.Update)
		r.Delete("/task/{id}", taskHandler.Delete)

		if cfg.DirectoryURL != "" {
			userHandler := handler.NewUserHandler(directory.NewClient(cfg.DirectoryURL, cfg.DirectoryToken), blobStore, logger)
			r.Get("/me", userHandler.Me)
			r.Put("/me/picture", userHandler.UpdatePicture)
		}
	})

	sweeper := worker.NewSweeper(store, logger, cfg.SweepInterval)
	sweeper.Start(context.Background())

	srv := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed: ", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Shutdown error: ", zap.Error(err))
	}
	sweeper.Stop()
	logger.Info("Server stopped successfully!")
}
