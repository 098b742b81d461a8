package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/marketboard/ad-scheduler/config"
	"github.com/marketboard/ad-scheduler/internal/health"
	"github.com/marketboard/ad-scheduler/internal/infrastructure/postgres"
	ctxlog "github.com/marketboard/ad-scheduler/internal/log"
	"github.com/marketboard/ad-scheduler/internal/metrics"
	"github.com/marketboard/ad-scheduler/internal/scheduler"
	httptransport "github.com/marketboard/ad-scheduler/internal/transport/http"
	"github.com/marketboard/ad-scheduler/internal/transport/http/handler"
	"github.com/marketboard/ad-scheduler/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	scheduleRepo := postgres.NewScheduleRepository(pool)
	timeSlotRepo := postgres.NewTimeSlotRepository(pool)
	campaignRepo := postgres.NewCampaignRepository(pool)
	logRepo := postgres.NewExecutionLogRepository(pool)

	sink := scheduler.NewLogSink(logRepo, logger)
	runner := scheduler.NewImpressionRunner(
		campaignRepo,
		time.Duration(cfg.RunnerMinLatencyMS)*time.Millisecond,
		time.Duration(cfg.RunnerMaxLatencyMS)*time.Millisecond,
	)
	engine := scheduler.NewEngine(
		scheduleRepo, timeSlotRepo, campaignRepo, sink, runner, logger,
		time.Duration(cfg.ExecutionTimeoutSec)*time.Second,
	)

	clock, err := scheduler.NewTriggerClock(scheduleRepo, sink, engine, logger, scheduler.ClockConfig{
		MainSweepSpec:    cfg.MainSweepSpec,
		RetrySweepSpec:   cfg.RetrySweepSpec,
		CleanupSweepSpec: cfg.CleanupSweepSpec,
		BatchSize:        cfg.SweepBatchSize,
		Concurrency:      cfg.SweepConcurrency,
		RetentionDays:    cfg.RetentionDays,
	})
	if err != nil {
		stop()
		log.Fatalf("trigger clock: %v", err)
	}
	if cfg.ClockAutoStart {
		clock.Start()
	}

	scheduleUsecase := usecase.NewScheduleUsecase(scheduleRepo, timeSlotRepo, logRepo, sink)
	availabilityUsecase := usecase.NewAvailabilityUsecase(timeSlotRepo, scheduleRepo, campaignRepo)

	scheduleHandler := handler.NewScheduleHandler(scheduleUsecase, logger)
	timeSlotHandler := handler.NewTimeSlotHandler(availabilityUsecase, logger)
	clockHandler := handler.NewClockHandler(clock, logger)

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, scheduleHandler, timeSlotHandler, clockHandler),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	clock.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
