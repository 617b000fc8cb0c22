package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/cool-todo/internal/config"
	"github.com/msomdec/cool-todo/internal/handler"
	"github.com/msomdec/cool-todo/internal/logging"
	"github.com/msomdec/cool-todo/internal/repository/sqlite"
	"github.com/msomdec/cool-todo/internal/service"
	"github.com/msomdec/cool-todo/internal/session"
	"github.com/msomdec/cool-todo/internal/tasklist"
)

// viewIdle is how long a task view without an open stream is kept.
const viewIdle = 30 * time.Minute

func main() {
	logging.Setup(slog.LevelInfo)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	authService := service.NewAuthService(db.Accounts(), db.Users(), db.Sessions(), db.PasswordResets(),
		service.LogMailer{Logger: slog.Default()},
		service.AuthOptions{
			JWTSecret:     cfg.JWTSecret,
			BcryptCost:    cfg.BcryptCost,
			SessionTTL:    cfg.SessionTTL,
			ResetTokenTTL: cfg.ResetTokenTTL,
			BaseURL:       cfg.BaseURL,
		})
	accountService := service.NewAccountService(authService, db.Users())
	taskStore := service.NewTaskStore(db.Tasks())
	views := tasklist.NewRegistry(taskStore)
	limiter := service.NewTokenBucket(0.5, 10)

	janitor := service.NewJanitor(db.Sessions(), db.PasswordResets(), views, limiter, viewIdle)
	if err := janitor.Schedule(cfg.JanitorSchedule); err != nil {
		slog.Error("invalid janitor schedule", "schedule", cfg.JanitorSchedule, "error", err)
		os.Exit(1)
	}
	janitor.Start()
	defer janitor.Stop()

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Deps{
		Auth:         authService,
		Accounts:     accountService,
		Tasks:        taskStore,
		Views:        views,
		Gate:         session.NewGate(authService),
		Limiter:      limiter,
		DB:           db.SqlDB,
		CookieSecure: cfg.CookieSecure,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.LogRequests(handler.SecurityHeaders(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Live task streams end with the server.
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
