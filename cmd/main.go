package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reminder-engine/internal/api"
	"reminder-engine/internal/api/handler"
	"reminder-engine/internal/batch"
	"reminder-engine/internal/config"
	"reminder-engine/internal/domain/reminder"
	"reminder-engine/internal/event"
	"reminder-engine/internal/infrastructure/database/postgres"
	"reminder-engine/internal/infrastructure/logging"
	"reminder-engine/internal/transport/whatsapp"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

func main() {
	cfg, logger := initializeApp()

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)

	amqpConn, publisher := initializeEventPublisher(cfg, logger)
	if amqpConn != nil {
		defer amqpConn.Close()
	}

	job, sender := initializeEngine(cfg, dbPool, publisher, logger)

	cronScheduler := startBatchJobs(cfg, logger, job)

	reminderHandler := handler.NewReminderHandler(job, sender, logger)
	router := api.SetupRouter(reminderHandler, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

func initializeEventPublisher(cfg *config.Config, logger *slog.Logger) (*amqp.Connection, event.Publisher) {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("Event publishing disabled.")
		return nil, nil
	}

	url := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		cfg.RabbitMQ.Username, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	conn, err := amqp.Dial(url)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ; continuing without events", "error", err)
		return nil, nil
	}

	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to initialize event publisher; continuing without events", "error", err)
		conn.Close()
		return nil, nil
	}
	return conn, publisher
}

func initializeEngine(cfg *config.Config, dbPool *pgxpool.Pool, publisher event.Publisher, logger *slog.Logger) (*batch.ReminderJob, whatsapp.Sender) {
	logger.Info("Initializing reminder engine components...")

	loc, err := time.LoadLocation(cfg.Reminder.Timezone)
	if err != nil {
		logger.Error("Invalid reminder timezone", "timezone", cfg.Reminder.Timezone, "error", err)
		os.Exit(1)
	}

	repo := postgres.NewCreditRepository(dbPool, logger)
	sender := whatsapp.NewClient(cfg.Gateway, logger)
	composer := reminder.NewComposer(cfg.Reminder.LinkBaseURL, buildPromoPolicy(cfg.Reminder.Promo, loc, logger))

	job := batch.NewReminderJob(repo, sender, publisher, composer, cfg.Reminder, loc, logger)
	return job, sender
}

func buildPromoPolicy(cfg config.PromoConfig, loc *time.Location, logger *slog.Logger) reminder.PromoPolicy {
	policy := reminder.PromoPolicy{
		TenantID:       cfg.TenantID,
		MinBalance:     decimal.NewFromInt(cfg.MinBalance),
		MinDaysOverdue: cfg.MinDaysOverdue,
		Location:       loc,
	}

	policy.Start = parsePromoDate(cfg.StartDate, loc, logger)
	policy.End = parsePromoDate(cfg.EndDate, loc, logger)
	if policy.Start.IsZero() || policy.End.IsZero() {
		logger.Info("Promo window not configured; promotion disabled.")
	}
	return policy
}

func parsePromoDate(value string, loc *time.Location, logger *slog.Logger) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		logger.Warn("Invalid promo date ignored", "value", value, "error", err)
		return time.Time{}
	}
	return t
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
		logger.Info("Server goroutine finished before signal.", "error", err)
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		} else {
			logger.Info("HTTP server shutdown initiated.")
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}

	logger.Info("Application shutdown process complete.")
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, job *batch.ReminderJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleSpec := cfg.Reminder.Schedule
	if scheduleSpec == "" {
		scheduleSpec = "*/30 * * * *"
		logger.Warn("Reminder schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Reminder.RunTimeout
	if jobTimeout <= 0 {
		jobTimeout = 25 * time.Minute
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "ReminderDispatch")
		jobLogger.Info("Cron triggered: Running reminder dispatch job.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		res, runErr := job.Run(ctx)
		if runErr != nil {
			jobLogger.Error("Reminder dispatch job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Reminder dispatch job finished.",
				"outcome", res.Outcome, "skip", res.Skip, "sent", res.Sent, "errors", res.Errors)
		}
	}))

	if err != nil {
		logger.Error("Failed to schedule reminder dispatch job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled reminder dispatch job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}
