// Package main запускает HTTP-сервер системы одобрения кредитов.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/credit-approval-system/internal/cache"
	"github.com/mmeshcher/credit-approval-system/internal/config"
	"github.com/mmeshcher/credit-approval-system/internal/handler"
	"github.com/mmeshcher/credit-approval-system/internal/ingest"
	"github.com/mmeshcher/credit-approval-system/internal/repository"
	"github.com/mmeshcher/credit-approval-system/internal/service"
)

// loanCache объединяет кэш, используемый сервисом и загрузчиком.
type loanCache interface {
	service.LoanCache
	ingest.Invalidator
	Close() error
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	policy, err := cfg.EnginePolicy()
	if err != nil {
		sugar.Fatalw("policy configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var lc loanCache = cache.Nop{}
	if cfg.RedisAddress != "" {
		rc, err := cache.NewRedisCache(context.Background(), cfg.RedisAddress, cfg.LoanCacheTTL)
		if err != nil {
			sugar.Warnw("loan cache disabled", "addr", cfg.RedisAddress, "error", err.Error())
		} else {
			lc = rc
		}
	}
	defer lc.Close()

	svc := service.NewService(repo, lc, service.SystemClock{}, policy)
	defer svc.Close()

	h := handler.NewHandler(svc, logger)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Начальная загрузка данных из Excel в фоне, сервер при этом уже принимает запросы
	if cfg.IngestOnStart {
		g.Go(func() error {
			importer := ingest.NewImporter(repo, lc, logger)
			if err := importer.Run(ctx, cfg.DataDir); err != nil {
				sugar.Errorw("initial data ingestion failed", "dir", cfg.DataDir, "error", err)
				return nil
			}
			sugar.Infow("initial data ingestion finished", "dir", cfg.DataDir)
			return nil
		})
	}

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting credit approval server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
