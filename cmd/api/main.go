package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bryanwahyu/bone-ager/internal/application"
	appassessment "github.com/bryanwahyu/bone-ager/internal/application/assessment"
	"github.com/bryanwahyu/bone-ager/internal/config"
	"github.com/bryanwahyu/bone-ager/internal/infra/estimator"
	"github.com/bryanwahyu/bone-ager/internal/infra/httpserver"
	"github.com/bryanwahyu/bone-ager/internal/infra/imaging"
	"github.com/bryanwahyu/bone-ager/internal/infra/report"
	"github.com/bryanwahyu/bone-ager/internal/middleware"
	"github.com/bryanwahyu/bone-ager/internal/observability"
)

var version = "dev"

func main() {
	// load config
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		observability.NewLogger("bone-ager", version, "info", os.Stderr).Fatal(err, "config load error")
	}

	logger := observability.NewLogger(cfg.Tracing.ServiceName, version, cfg.Log.Level, os.Stdout)

	ctx := context.Background()

	// tracing
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		logger.Fatal(err, "tracing init error")
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)

	// init adapters
	est := estimator.NewConstant(cfg.Estimator.ConstantMonths)

	// init service
	svc := &appassessment.Service{
		Decoder:   imaging.NewDecoder(cfg.Server.MaxPixels),
		Previewer: imaging.NewPNGPreviewer(cfg.Preview.Width),
		Estimator: est,
		Composer:  report.NewPDFComposer(cfg.Report.Title, cfg.Report.AgeUnitLabel),
		Clock:     application.SystemClock{},
		Logger:    logger,
		Metrics:   metrics,
	}

	opts := httpserver.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Health:         map[string]middleware.HealthChecker{"estimator": est},
	}
	if cfg.RateLimit.Enabled {
		opts.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
		defer opts.RateLimiter.Stop()
	} else {
		logger.Warn("rate limiting disabled")
	}
	if cfg.Tracing.JaegerEndpoint == "" {
		logger.Warn("tracing disabled: no jaeger endpoint configured")
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      httpserver.NewRouter(svc, logger, metrics, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// run server
	go func() {
		logger.Info("server listening on " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err, "server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error(err, "shutdown error")
	}
	if err := shutdownTracing(ctx2); err != nil {
		logger.Error(err, "tracing shutdown error")
	}
}
