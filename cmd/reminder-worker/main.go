package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moneta/internal/amqp"
	"moneta/internal/clock"
	"moneta/internal/config"
	"moneta/internal/log"
	"moneta/internal/storage"
	"moneta/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting reminder-worker", log.FieldOperation, log.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the reminder worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPEventQueue, cfg.AMQPReminderQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewReminderWorker(repo, client, clock.NewResolver(), cfg.ReminderBatchSize, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
		cancel()
	}()

	// Consume the reminders this worker publishes and deliver them through
	// the log sink. External notification systems can bind their own queue
	// to the exchange instead.
	notifier := worker.NewNotifier(worker.NewLogSink(logger), logger)
	go func() {
		if err := client.ConsumeRecurringDue(ctx, notifier.HandleReminder); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Reminder consumption failed", log.FieldError, err)
			cancel()
		}
	}()

	logger.Info("Reminder worker configured",
		"interval", cfg.ReminderInterval,
		"batch_size", cfg.ReminderBatchSize,
		"sqlite_db", cfg.SQLiteDBPath)

	if err := w.Run(ctx, cfg.ReminderInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Reminder worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	// Give in-flight publishes a moment to drain.
	time.Sleep(2 * time.Second)
	logger.Info("Reminder worker stopped gracefully")
}
