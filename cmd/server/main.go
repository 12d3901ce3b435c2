package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sheetTranslator/cache"
	"sheetTranslator/config"
	"sheetTranslator/database"
	"sheetTranslator/handlers"
	"sheetTranslator/kafka"
	"sheetTranslator/middleware"
	"sheetTranslator/pool"
	"sheetTranslator/registry"
	"sheetTranslator/repository"
	"sheetTranslator/service"
	"sheetTranslator/stream"
	"sheetTranslator/translator"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg)
	defer logger.Sync()

	logger.Info("Translation service starting",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("output_dir", cfg.OutputDir),
		zap.Int("workers", cfg.WorkerCount),
	)

	if err := cfg.EnsureDirs(); err != nil {
		logger.Fatal("Failed to prepare directories", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reporters, closers := connectReporters(ctx, cfg, logger)
	defer func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}()

	reg := registry.New(registry.WithRetention(cfg.TaskRetention))
	client := translator.NewClient(translator.Config{
		BaseURL:    cfg.TranslateURL,
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
	}, logger)

	workers := pool.NewWorkerPool(ctx, cfg.WorkerCount)
	processor := service.NewProcessor(reg, client, workers, service.Options{
		OutputDir:    cfg.OutputDir,
		HeaderMarker: cfg.TranslatedHeader,
		OutputSuffix: cfg.OutputSuffix,
		BatchSize:    cfg.BatchSize,
		BatchPause:   cfg.BatchPause,
	}, logger, reporters...)
	taskService := service.NewTaskService(reg, processor)
	streamer := stream.NewStreamer(reg, cfg.ProgressInterval)

	mux := http.NewServeMux()
	handlers.NewTaskHandler(taskService, streamer, logger, cfg.MaxFileSize, cfg.UploadDir).Register(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: middleware.Chain(mux,
			middleware.TraceID,
			middleware.Logging(logger),
			middleware.Recovery(logger),
		),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("Server started", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	workers.Wait()
	logger.Info("Translation service stopped", zap.Int("tasks_in_memory", reg.Len()))
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	return logger
}

// connectReporters sets up the optional status mirrors. Each one is enabled
// only when configured, and a connection failure disables it with a warning.
func connectReporters(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]service.Reporter, []func()) {
	var (
		reporters []service.Reporter
		closers   []func()
	)

	if cfg.RedisAddr != "" {
		rdb, err := database.ConnectCache(ctx, database.CacheOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Warn("Redis unavailable, status mirror disabled", zap.Error(err))
		} else {
			reporters = append(reporters, cache.NewStatusCache(rdb, cfg.TaskRetention))
			closers = append(closers, func() { rdb.Close() })
			logger.Info("Redis status mirror enabled", zap.String("addr", cfg.RedisAddr))
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Warn("Kafka unavailable, task events disabled", zap.Error(err))
		} else {
			reporters = append(reporters, producer)
			closers = append(closers, func() { producer.Close() })
			logger.Info("Kafka task events enabled", zap.String("topic", cfg.KafkaTopic))
		}
	}

	if cfg.DatabaseURL != "" {
		db, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("Postgres unavailable, task history disabled", zap.Error(err))
		} else {
			history := repository.NewHistoryRepo(db.Pool)
			if err := history.EnsureSchema(ctx); err != nil {
				logger.Warn("Task history schema setup failed, history disabled", zap.Error(err))
				db.Close()
			} else {
				reporters = append(reporters, history)
				closers = append(closers, db.Close)
				logger.Info("Postgres task history enabled")
			}
		}
	}

	return reporters, closers
}
