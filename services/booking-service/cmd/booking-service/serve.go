package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/cache"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/reminders"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, gRPC health server and optional reminder worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func setupTracing(ctx context.Context, service string, logger *slog.Logger) func() {
	shutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
		return func() {}
	}
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}
}

func runServer() error {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		return err
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()
	defer setupTracing(ctx, service, logger)()

	a, err := newApp(ctx, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		return err
	}
	defer a.Close()

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(a.pool)}}
	if a.rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: cache.ReadyCheck(a.rdb)})
	}
	if a.kafka != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(a.brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("GET /metrics", promhttp.Handler())
	handlers.Register(mux,
		handlers.NewCatalogHandler(a.availability, a.slots, logger),
		handlers.NewBookingHandler(a.bookings, logger),
		handlers.NewReminderHandler(a.reminders, logger),
	)

	var rateLimit httpx.Middleware
	if perMinute := config.Int("RATE_LIMIT_PER_MINUTE", 0); perMinute > 0 {
		if a.rdb != nil {
			rateLimit = httpx.NewRedisRateLimiter(a.rdb, perMinute, time.Minute, service+":rl").Middleware(logger, true)
		} else {
			rateLimit = httpx.NewRateLimiter(perMinute, time.Minute).Middleware()
		}
	}
	authn := auth.Authenticator{
		Secret:       config.String("JWT_SECRET", ""),
		TrustHeaders: config.Bool("AUTH_TRUST_HEADERS", false),
		Logger:       logger,
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(config.List("CORS_ALLOWED_ORIGINS", ""))),
		rateLimit,
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(config.Seconds("REQUEST_TIMEOUT_SECONDS", 15*time.Second)),
		authn.Middleware(),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	if err := startGrpcServer(ctx, logger, service); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	if config.Bool("REMINDER_WORKER_ENABLED", false) {
		w := reminders.NewWorker(a.reminders, logger, config.Seconds("REMINDER_POLL_SECONDS", 30*time.Second))
		go w.Run(ctx)
		logger.Info("reminder worker started")
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}
