// cmd/fsource/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/FairForge/fsource/internal/config"
	"github.com/FairForge/fsource/internal/drivers"
	"github.com/FairForge/fsource/internal/engine"
	"github.com/FairForge/fsource/internal/metrics"
	"github.com/FairForge/fsource/internal/source"
)

func main() {
	cfg := loadConfig()

	logger := newLogger(cfg.Server.LogLevel)
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pick the backend the source reads through
	backend, run, err := newBackend(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create backend", zap.Error(err))
	}
	run.Concurrency = cfg.Concurrency

	m := metrics.NewMetrics()
	opts, err := config.Parse(cfg.Source)
	if err != nil {
		logger.Fatal("invalid source configuration", zap.Error(err))
	}
	opts.Backend = backend

	src, err := source.New(opts, logger,
		source.WithMetrics(m),
		source.WithDebounce(cfg.Watch.Debounce))
	if err != nil {
		logger.Fatal("invalid source configuration", zap.Error(err))
	}

	var server *http.Server
	if cfg.Server.MetricsAddr != "" {
		health := drivers.NewHealthChecker(logger)
		health.RegisterBackend("backend", backend)
		health.RegisterCheck("source", func(ctx context.Context) error {
			return src.Initialize(ctx, run)
		})
		server = serveMetrics(cfg.Server.MetricsAddr, m, health, logger)
	}

	if err := src.Initialize(ctx, run); err != nil {
		logger.Fatal("failed to initialize source", zap.Error(err))
	}

	if err := readAll(ctx, src, run, logger); err != nil {
		logger.Error("read failed", zap.Error(err))
	}

	if cfg.Watch.Enabled {
		if err := watch(ctx, src, run, logger); err != nil {
			logger.Error("watch failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := src.Dispose(shutdownCtx); err != nil {
		logger.Error("dispose error", zap.Error(err))
	}
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}
}

func loadConfig() *config.FileConfig {
	cfg := config.Default()
	if path := os.Getenv("FSOURCE_CONFIG"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			// logger is not built yet
			_, _ = os.Stderr.WriteString(err.Error() + "\n")
			os.Exit(1)
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)
	return cfg
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newBackend returns the storage the source reads through. For s3 the bucket
// is the root, so relative source paths resolve against "/".
func newBackend(cfg *config.FileConfig, logger *zap.Logger) (drivers.FS, engine.Run, error) {
	var (
		backend drivers.FS
		run     engine.Run
	)

	switch cfg.Storage.Mode {
	case "s3":
		s3c := cfg.Storage.S3
		d, err := drivers.NewS3Driver(s3c.Endpoint, s3c.AccessKey, s3c.SecretKey, s3c.Region, s3c.Bucket, logger)
		if err != nil {
			return nil, run, err
		}
		backend = drivers.NewRetryDriver(d, drivers.NewRetryPolicy(
			drivers.WithMaxAttempts(cfg.Storage.Retries),
			drivers.WithLogger(logger)))
		run.Cwd = "/"
		logger.Info("using S3 storage",
			zap.String("bucket", s3c.Bucket),
			zap.String("endpoint", s3c.Endpoint))

	default:
		backend = drivers.NewLocalDriver("", logger)
		logger.Info("using local storage")
	}

	if cfg.Storage.ReadRate > 0 {
		backend = drivers.NewThrottledDriver(backend, cfg.Storage.ReadRate, logger)
		logger.Info("read throttling enabled", zap.Int("bytes_per_second", cfg.Storage.ReadRate))
	}
	return backend, run, nil
}

func serveMetrics(addr string, m *metrics.Metrics, health *drivers.HealthChecker, logger *zap.Logger) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", m.Handler())
	r.Handle("/healthz", health.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return server
}

func readAll(ctx context.Context, src *source.Source, run engine.Run, logger *zap.Logger) error {
	seq, err := src.Read(ctx, run)
	if err != nil {
		return engine.WrapError(err, "start read")
	}

	count, total := 0, 0
	for file, err := range seq {
		if err != nil {
			return err
		}
		count++
		total += file.Size()
		logger.Info("file",
			zap.String("path", file.Path),
			zap.String("source", file.Source),
			zap.Int("size", file.Size()))
	}
	logger.Info("read complete", zap.Int("files", count), zap.Int("bytes", total))
	return nil
}

// watch logs change records until ctx is cancelled
func watch(ctx context.Context, src *source.Source, run engine.Run, logger *zap.Logger) error {
	seq, err := src.Watch(ctx, run)
	if err != nil {
		return engine.WrapError(err, "start watch")
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down watch...")
		disposeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := src.Dispose(disposeCtx); err != nil {
			logger.Error("dispose error", zap.Error(err))
		}
	}()

	for file, err := range seq {
		if err != nil {
			logger.Warn("watch error", zap.Error(err))
			continue
		}
		logger.Info("change",
			zap.String("change", string(file.Change)),
			zap.String("path", file.Path),
			zap.Int("size", file.Size()))
	}
	return nil
}
