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

	"github.com/cmlabs-hris/leave-backend-go/internal/config"
	domainLeave "github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	appHTTP "github.com/cmlabs-hris/leave-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/telemetry"
	"github.com/cmlabs-hris/leave-backend-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/leave-backend-go/internal/service/leave"
	notificationService "github.com/cmlabs-hris/leave-backend-go/internal/service/notification"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

// newServer builds the HTTP server. Shutdown closes the hub first so open event streams
// return instead of holding the server until the shutdown timeout.
func newServer(addr string, handler http.Handler, hub *sse.Hub) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.RegisterOnShutdown(hub.Close)
	return server
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := appHTTP.NewLogger(os.Stdout, cfg.App)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := telemetry.Setup(ctx, cfg.Telemetry, cfg.App.Name, cfg.App.Version)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("Failed to flush traces", "error", err)
		}
	}()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		StatementTimeout: cfg.Database.StatementTime,
	})
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, db)
		if err != nil {
			return fmt.Errorf("error running migrations: %w", err)
		}
		slog.Info("Database migrations complete", "applied", applied)
	}

	userRepo := postgresql.NewUserRepository(db)
	settingRepo := postgresql.NewSettingRepository(db)
	leaveTypeRepo := postgresql.NewLeaveTypeRepository(db)
	balanceRepo := postgresql.NewBalanceRepository(db)
	monthlyUsageRepo := postgresql.NewMonthlyUsageRepository(db)
	leaveRequestRepo := postgresql.NewLeaveRequestRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)
	transactor := postgresql.NewTransactor(db)

	hub := sse.NewHub(16)
	defer hub.Close()

	notifService := notificationService.NewNotificationService(notificationRepo, hub, notificationService.Config{
		BatchSize:     cfg.Notification.BatchSize,
		FlushInterval: cfg.Notification.FlushInterval,
		WorkerCount:   cfg.Notification.Workers,
		QueueSize:     cfg.Notification.QueueSize,
	})
	defer notifService.Stop()

	location := cfg.Location()
	leaveService := leave.NewLeaveService(
		transactor,
		leaveTypeRepo,
		balanceRepo,
		monthlyUsageRepo,
		leaveRequestRepo,
		userRepo,
		settingRepo,
		notifService,
		leave.WithPolicy(domainLeave.Policy{
			MonthlyMaxDays:    cfg.Leave.MonthlyMaxDays,
			ResetTotalDays:    cfg.Leave.ResetTotalDays,
			AutoEnrollCodes:   cfg.Leave.AutoEnrollCodes,
			ThrottledCodes:    cfg.Leave.ThrottledCodes,
			DesignatedAdminID: cfg.Leave.DesignatedAdminID,
			Location:          location,
		}),
	)

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return fmt.Errorf("invalid JWT configuration: %w", err)
	}

	leaveHandler := appHTTP.NewLeaveHandler(leaveService, location)
	notificationHandler := appHTTP.NewNotificationHandler(notifService, JWTService)

	if cfg.Cron.Enabled {
		scheduler := cron.NewScheduler()
		leaveJobs := cron.NewLeaveJobs(leaveService, settingRepo, location, cfg.Leave.ResetRollover)
		leaveJobs.RegisterJobs(scheduler, cfg.Cron.AnnualResetCheckEvery)
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := appHTTP.NewRouter(cfg.App, logger, JWTService, db, leaveHandler, notificationHandler)

	server := newServer(fmt.Sprintf(":%d", cfg.App.Port), otelhttp.NewHandler(router, cfg.App.Name), hub)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
