package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/mindengage-p5/internal/api/http"
	"github.com/mind-engage/mindengage-p5/internal/assessment"
	auth "github.com/mind-engage/mindengage-p5/internal/auth/middleware"
	"github.com/mind-engage/mindengage-p5/internal/config"
	"github.com/mind-engage/mindengage-p5/internal/db"
	"github.com/mind-engage/mindengage-p5/internal/grading"
	"github.com/mind-engage/mindengage-p5/internal/jobs"
	syncx "github.com/mind-engage/mindengage-p5/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := newLogger(cfg)
	slog.SetDefault(log)

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Error("db open failed", "err", err)
		os.Exit(1)
	}
	defer dbh.Close()

	// --- Engine ---
	store := assessment.NewSQLStore(dbh, cfg.DBDriver)
	events := syncx.NewEventRepo(dbh, cfg.SiteID)
	scorer := grading.NewScorer(store, grading.WithLogger(log))
	calc := grading.NewCalculator(store, scorer, grading.WithLogger(log), grading.WithEventRecorder(events))

	pending := jobs.NewPendingScorer(calc, log)
	if _, err := pending.Schedule(cfg.PendingScoreCron); err != nil {
		log.Error("pending scorer", "err", err)
		os.Exit(1)
	}
	pending.Start()

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, auth.LoginConfig{
		AdminUser:     cfg.AdminUser,
		AdminPassHash: cfg.AdminPassHash,
		Users:         auth.SQLUserLookup{DB: dbh},
		DevPasswords:  cfg.Mode == config.ModeOffline,
		Log:           log,
	}))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		if cfg.RoleFromDB {
			pr.Use(auth.AttachRoleFromDB(dbh, cfg.Mode == config.ModeOffline))
		}
		api.MountScoring(pr, api.Deps{Scorer: scorer, Calculator: calc, Log: log})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	pending.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
