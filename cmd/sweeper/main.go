// Command sweeper runs one pass of the proof-retention sweep and exits.
// An external scheduler (cron, systemd timer) triggers it.
package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pgpay/pgpay-backend/internal/config"
	"github.com/pgpay/pgpay-backend/internal/logger"
	"github.com/pgpay/pgpay-backend/internal/proofstore"
	"github.com/pgpay/pgpay-backend/internal/storage/postgres"
	"github.com/pgpay/pgpay-backend/internal/sweep"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if !cfg.S3Configured() {
		log.Fatal("S3 credentials are required for the sweeper")
	}

	zl := logger.New(cfg.LogLevel, cfg.LogConsole)
	defer zl.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("init database", zap.Error(err))
	}
	defer store.Close()

	proofs, err := proofstore.NewS3(proofstore.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		zl.Fatal("init proof storage", zap.Error(err))
	}

	report, err := sweep.Run(ctx, zl, proofs, store, cfg.ProofRetention)
	if err != nil {
		zl.Fatal("sweep failed", zap.Error(err))
	}
	zl.Info("sweep report",
		zap.Int("deleted", report.Deleted),
		zap.Int("errors", report.Errors),
		zap.Time("cutoff", report.Cutoff),
	)
}
