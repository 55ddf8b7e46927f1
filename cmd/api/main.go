package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ansard/weddingbook/internal/auth"
	"github.com/ansard/weddingbook/internal/config"
	"github.com/ansard/weddingbook/internal/guest"
	"github.com/ansard/weddingbook/internal/media"
	"github.com/ansard/weddingbook/internal/server"
	"github.com/ansard/weddingbook/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.OpenPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer dbPool.Close()

	if err := storage.EnsureSchema(ctx, dbPool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	minioClient, err := storage.OpenObjectStore(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("connect minio: %v", err)
	}

	authRepo := auth.NewRepository(dbPool)
	authService := auth.NewService(authRepo, cfg.Auth)
	if err := authService.EnsureAdmin(ctx); err != nil {
		log.Fatalf("ensure bootstrap admin: %v", err)
	}

	guestRepo := guest.NewRepository(dbPool)

	mediaRepo := media.NewRepository(dbPool)
	blobStore := media.NewMinIOStore(minioClient, cfg.MinIO.Bucket)
	mediaService := media.NewService(mediaRepo, blobStore, cfg.Media.MaxFileSize)
	deriver := media.NewDeriver(mediaRepo, blobStore, cfg.Media.FFmpegPath)
	worker := media.NewWorker(deriver, mediaRepo)
	worker.Start(ctx)

	gate := media.NewGate(media.VerifierFunc(func(token string) error {
		_, err := authService.ValidateToken(token)
		return err
	}))

	mediaHandler := media.NewHandler(mediaService, deriver, worker, gate, cfg.Media.MaxFilesPerUpload)

	router := server.NewRouter(server.Dependencies{
		Config:       cfg,
		DB:           dbPool,
		ObjectStore:  minioClient,
		AuthService:  authService,
		GuestRepo:    guestRepo,
		MediaHandler: mediaHandler,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("weddingbook API listening on %s", cfg.Server.Address())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Println("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	worker.Stop()
}
