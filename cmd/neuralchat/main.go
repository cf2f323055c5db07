package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"neuralchat/internal/app"
	"neuralchat/internal/config"
	"neuralchat/internal/server"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg := config.Config{}
	if err := config.Init(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.IndexFile = filepath.Join(cfg.DataDir, "neuralchat.index")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("failed to create data directory: %v", err)
	}
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		log.Fatalf("failed to create upload directory: %v", err)
	}

	log.Printf("Data directory: %s", cfg.DataDir)
	log.Printf("Upload directory: %s", cfg.UploadDir)

	a, err := app.New(&cfg)
	if err != nil {
		log.Fatalf("failed to create app: %v", err)
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(a, cfg.UploadDir, cfg.AllowedOrigin).Handler(),
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	go func() {
		log.Printf("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped with error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Print("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
