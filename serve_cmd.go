package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/outing-service/internal/auth"
	"github.com/Eursukkul/outing-service/internal/clock"
	"github.com/Eursukkul/outing-service/internal/consumer"
	"github.com/Eursukkul/outing-service/internal/handler"
	"github.com/Eursukkul/outing-service/internal/middleware"
	"github.com/Eursukkul/outing-service/internal/repository"
	"github.com/Eursukkul/outing-service/internal/scheduler"
	"github.com/Eursukkul/outing-service/internal/service"
	"github.com/Eursukkul/outing-service/pkg/rabbitmq"
	"github.com/Eursukkul/outing-service/pkg/redislock"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the scheduler and the notification consumer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return a.serve(ctx)
	},
}

func (a *app) serve(ctx context.Context) error {
	cfg, log := a.cfg, a.logger
	clk := clock.RealClock{}

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, log)
	if err != nil {
		return err
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		return err
	}

	var locker scheduler.Locker
	if cfg.RedisAddr != "" {
		rdb, err := redislock.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = redislock.New(rdb, log)
	} else {
		log.Warn("REDIS_ADDR not set, sweeps run without a cross-replica lock")
	}

	notifications := repository.NewNotificationRepository(a.db)

	outingSvc := service.NewOutingService(a.outings, publisher, clk, log.Named("commands"))
	updater := service.NewStateUpdater(a.outings, clk, log.Named("sweep"))
	reminders := service.NewReminderService(a.outings, publisher, log.Named("reminders"))

	sched := scheduler.New(updater, reminders, locker, clk, log.Named("scheduler"))
	sched.Interval = cfg.SweepInterval
	sched.ReminderLead = cfg.ReminderLead

	notificationConsumer := consumer.NewNotificationConsumer(a.outings, notifications, clk, log.Named("consumer"))

	jwtSvc := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpireHours)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler(log)
	e.Use(middleware.RequestLogger(log))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "outing-service"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1", middleware.JWT(jwtSvc))
	handler.NewOutingHandler(outingSvc, updater, cfg.SweepOnRead, log).RegisterRoutes(api)
	handler.NewNotificationHandler(notifications).RegisterRoutes(api)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("outing service starting", zap.String("port", cfg.ServerPort))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		return notificationConsumer.Run(gctx, msgs)
	})

	err = g.Wait()
	log.Info("outing service stopped")
	return err
}
