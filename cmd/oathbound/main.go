package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/oathbound/oathbound/internal/config"
	"github.com/oathbound/oathbound/internal/infrastructure/cache"
	"github.com/oathbound/oathbound/internal/infrastructure/database"
	"github.com/oathbound/oathbound/internal/infrastructure/gateway"
	"github.com/oathbound/oathbound/internal/infrastructure/repository"
	"github.com/oathbound/oathbound/internal/jobs"
	"github.com/oathbound/oathbound/internal/present/rest"
	"github.com/oathbound/oathbound/internal/service"
	"github.com/oathbound/oathbound/internal/telemetry"
	"github.com/oathbound/oathbound/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	shutdownTracer, err := telemetry.Setup(ctx, "oathbound", conf.Server.TraceEndpoint, conf.Server.EnableTrace)
	if err != nil {
		slog.Error("Failed to set up tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer shutdownTracer(ctx)

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		slog.Error("Failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := database.MigratePostgres(db); err != nil {
		slog.Error("Failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, "", conf.Server.RedisDB)
	mc := database.NewMemcached(conf.Server.MemcachedAddr)

	ledgerRepo := repository.NewLedgerRepository(db)
	userRepo := repository.NewUserRepository(db)
	oathRepo := repository.NewOathRepository(db)
	checkInRepo := repository.NewCheckInRepository(db)
	disputeRepo := repository.NewDisputeRepository(db)
	friendshipRepo := repository.NewFriendshipRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notifications := service.NewNotificationService(notificationRepo, rdb)
	proofSource := gateway.NewLeetCodeGateway(conf.ProofSource.ApiBase)
	stateStore := cache.NewMemcachedStateStore(mc)

	oathUsecase := usecase.NewOathUsecase(oathRepo, userRepo, ledgerRepo, friendshipRepo, notifications)
	checkInUsecase := usecase.NewCheckInUsecase(checkInRepo, oathRepo, userRepo, proofSource, stateStore, gateway.ProblemURL)
	disputeUsecase := usecase.NewDisputeUsecase(disputeRepo, checkInRepo, oathRepo, notifications)

	scheduler := jobs.NewScheduler(oathUsecase, checkInUsecase, conf.ProofSource.PollSchedule, conf.Jobs.SweepSchedule)
	if err := scheduler.Start(ctx); err != nil {
		slog.Error("Failed to start scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer scheduler.Stop()

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("oathbound"))
	}

	handler := rest.NewHandler(oathUsecase, checkInUsecase, disputeUsecase, notifications)
	handler.RegisterRoutes(e)

	go func() {
		if err := e.Start(conf.Server.ListenAddr); err != nil && err != http.ErrServerClosed {
			slog.Error("Server stopped", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down cleanly", slog.String("error", err.Error()))
	}
}
