// Package cli provides the start-up helpers shared by cmd/tagihan and
// cmd/reminder-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tagihan/internal/advice"
	"tagihan/internal/config"
	applog "tagihan/internal/log"
	"tagihan/internal/notify"
	"tagihan/internal/storage"
	"tagihan/internal/storage/memory"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: component,
		Format:    cfg.LogFormat,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration, sets up logging and validates
// the result. Exits the process on validation failure.
func LoadAndValidateConfig(component string) (*config.Config, *applog.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenStore opens the configured backend. Exits the process on failure.
func OpenStore(logger *applog.Logger, cfg *config.Config) storage.Store {
	switch cfg.DataBackend {
	case "memory":
		logger.Warn("Using in-memory storage, data is lost on restart", "backend", cfg.DataBackend)
		return memory.New()
	default:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		version, dirty, err := storage.SchemaVersion(cfg.SQLiteDBPath)
		if err != nil {
			logger.Warn("Failed to read schema version", applog.FieldError, err)
		} else if dirty {
			logger.Warn("SQLite schema is dirty, a migration did not finish", "schema_version", version)
		}
		logger.Info("SQLite repository initialized", "path", cfg.SQLiteDBPath, "schema_version", version)
		return repo
	}
}

// NewGenerator returns a Gemini generator when an API key is configured, or
// nil so that advice falls back to templates.
func NewGenerator(ctx context.Context, logger *applog.Logger, cfg *config.Config) advice.TextGenerator {
	if cfg.GeminiAPIKey == "" {
		logger.Info("Text generation disabled, using advice templates")
		return nil
	}
	gen, err := advice.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Warn("Failed to initialize Gemini client, using advice templates", applog.FieldError, err)
		return nil
	}
	logger.Info("Gemini text generation enabled", "model", cfg.GeminiModel)
	return gen
}

// NewSender returns an SMTP sender when SMTP_HOST is set and a sender that
// only logs otherwise.
func NewSender(logger *applog.Logger, cfg *config.Config) notify.Sender {
	if cfg.SMTPHost == "" {
		logger.Info("SMTP disabled, reminders will only be logged")
		return notify.LogSender{}
	}
	logger.Info("SMTP delivery enabled", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SenderEmail,
	})
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled on SIGINT or SIGTERM, after cleanup has
// run with a context bounded by timeout. The channel closes once cleanup
// has finished.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context) error) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			if err := cleanup(shutdownCtx); err != nil {
				logger.Error("Shutdown cleanup failed", applog.FieldError, err)
			}
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
