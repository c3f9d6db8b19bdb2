// Package main загружает начальные данные клиентов и кредитов из файлов Excel.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mmeshcher/credit-approval-system/internal/cache"
	"github.com/mmeshcher/credit-approval-system/internal/config"
	"github.com/mmeshcher/credit-approval-system/internal/ingest"
	"github.com/mmeshcher/credit-approval-system/internal/repository"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var invalidator ingest.Invalidator
	if cfg.RedisAddress != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddress, cfg.LoanCacheTTL)
		if err != nil {
			sugar.Warnw("loan cache is not reachable, cached loans are not invalidated", "error", err.Error())
		} else {
			defer rc.Close()
			invalidator = rc
		}
	}

	importer := ingest.NewImporter(repo, invalidator, logger)
	if err := importer.Run(ctx, cfg.DataDir); err != nil {
		sugar.Fatalw("ingestion failed", "dir", cfg.DataDir, "error", err)
	}

	sugar.Infow("ingestion finished", "dir", cfg.DataDir)
}
