package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pgpay/pgpay-backend/internal/config"
	"github.com/pgpay/pgpay-backend/internal/logger"
	"github.com/pgpay/pgpay-backend/internal/mailer"
	"github.com/pgpay/pgpay-backend/internal/notify"
	"github.com/pgpay/pgpay-backend/internal/proofstore"
	"github.com/pgpay/pgpay-backend/internal/server"
	"github.com/pgpay/pgpay-backend/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl := logger.New(cfg.LogLevel, cfg.LogConsole)
	defer zl.Sync()

	ctx := context.Background()
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("init database", zap.Error(err))
	}
	defer store.Close()

	proofs, err := buildProofStore(cfg, zl)
	if err != nil {
		zl.Fatal("init proof storage", zap.Error(err))
	}

	mail := buildMailer(cfg, zl)
	hub := notify.NewHub()

	srv := server.New(cfg, zl, store, proofs, mail, hub)

	go func() {
		zl.Info("pgpay backend listening", zap.String("addr", cfg.HTTPAddress()))
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("http server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zl.Error("graceful shutdown error", zap.Error(err))
	}
}

func buildProofStore(cfg config.Config, zl *zap.Logger) (proofstore.Store, error) {
	if cfg.S3Configured() {
		return proofstore.NewS3(proofstore.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	zl.Warn("S3 credentials not set, storing proofs in memory")
	return proofstore.NewMemory(), nil
}

func buildMailer(cfg config.Config, zl *zap.Logger) mailer.Mailer {
	if cfg.SMTPAddr != "" && cfg.SMTPFrom != "" {
		return mailer.NewSMTP(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPassword)
	}
	return mailer.LogMailer{Log: zl}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
