package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/shopspring/decimal"

	"campaign-insights-service/internal/config"
	"campaign-insights-service/internal/controller"
	"campaign-insights-service/internal/db"
	"campaign-insights-service/internal/diagnostics"
	httpserver "campaign-insights-service/internal/http"
	"campaign-insights-service/internal/repository"
	"campaign-insights-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error("connect db", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool); err != nil {
		logger.Error("migrate", slog.String("err", err.Error()))
		os.Exit(1)
	}

	repo := repository.NewRunRepository(pool, cfg.OccurrenceBatchSize)
	engine := diagnostics.NewEngine(repo, thresholdsFromConfig(cfg), logger)
	worker := service.NewDiagnosticsWorker(engine, repo, cfg.DiagnosticsRetryEvery, logger)
	defer worker.Shutdown()

	ingestService := service.NewIngestService(repo, engine, worker, logger)
	ingestController := controller.NewIngestController(ingestService)

	server := httpserver.NewServer(cfg, ingestController)

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(); err != nil {
			logger.Error("shutdown", slog.String("err", err.Error()))
		}
	}()

	logger.Info("starting server", slog.String("addr", cfg.HTTPPort))
	if err := server.Listen(cfg.HTTPPort); err != nil {
		logger.Error("server stopped", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func thresholdsFromConfig(cfg *config.Config) diagnostics.Thresholds {
	t := diagnostics.DefaultThresholds()
	t.HighSpend = decimal.NewFromFloat(cfg.HighSpendThreshold)
	t.LowCTR = cfg.LowCTRThreshold
	t.LowCTRMinImpr = cfg.LowCTRMinImpr
	t.BaselineWindow = cfg.BaselineWindow
	t.DropRatio = cfg.DropRatio
	return t
}
