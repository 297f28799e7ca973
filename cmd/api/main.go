package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/vaccine-booking/internal/config"
	"github.com/Dan9191/vaccine-booking/internal/handler"
	"github.com/Dan9191/vaccine-booking/internal/jobs"
	"github.com/Dan9191/vaccine-booking/internal/middleware"
	"github.com/Dan9191/vaccine-booking/internal/repository"
	"github.com/Dan9191/vaccine-booking/internal/service"
	"github.com/Dan9191/vaccine-booking/internal/session"
	"github.com/Dan9191/vaccine-booking/internal/utils/email"
	"github.com/Dan9191/vaccine-booking/internal/views"
)

// store is everything the layers below need from persistence
type store interface {
	service.Store
	session.Store
	jobs.SessionStore
}

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("Failed to load .env: %v", err)
	}

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize storage
	repo, closeRepo, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}
	defer closeRepo()

	// Initialize layers
	var notifier service.Notifier
	if cfg.MailEnabled() {
		notifier = email.NewSender(cfg, logger)
	} else {
		logger.Info("SMTP_HOST not set, booking confirmations disabled")
	}
	svc, err := service.NewService(repo, logger, notifier)
	if err != nil {
		logger.Fatalf("Failed to initialize service: %v", err)
	}
	sessions := session.NewManager(repo, session.Options{
		Secret:      []byte(cfg.SecretKey),
		Secure:      cfg.CookieSecure,
		TTL:         cfg.SessionTTL,
		RememberTTL: cfg.RememberTTL,
	}, logger)
	renderer, err := views.New()
	if err != nil {
		logger.Fatalf("Failed to load templates: %v", err)
	}
	limiter := middleware.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst)
	h := handler.NewHandler(svc, sessions, renderer, limiter, logger)

	// Background jobs
	scheduler, err := jobs.NewSweeper(repo, limiter, logger).Start()
	if err != nil {
		logger.Fatalf("Failed to start jobs: %v", err)
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      protect(cfg, logger, h.Routes()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
	<-scheduler.Stop().Done()
}

func openStore(cfg *config.Config, logger *logrus.Logger) (store, func(), error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return repository.NewMemoryRepository(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	repo := repository.NewRepository(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.Ping(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, func() { db.Close() }, nil
}

// protect adds CSRF checks to every state-changing request. The token key is
// derived from SECRET_KEY.
func protect(cfg *config.Config, logger *logrus.Logger, next http.Handler) http.Handler {
	key := sha256.Sum256([]byte("csrf:" + cfg.SecretKey))
	mw := csrf.Protect(key[:],
		csrf.Secure(cfg.CookieSecure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.FieldName("csrf_token"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warnf("CSRF check failed on %s: %v", r.URL.Path, csrf.FailureReason(r))
			http.Error(w, "The form has expired. Please go back, reload the page and try again.", http.StatusForbidden)
		})),
	)(next)

	if cfg.CookieSecure {
		return mw
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}
