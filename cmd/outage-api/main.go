package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outagereminder/internal/app"
	"outagereminder/internal/calendar"
	"outagereminder/internal/config"
	"outagereminder/internal/http/handlers"
	"outagereminder/internal/http/middleware"
	"outagereminder/internal/logging"
	"outagereminder/internal/metrics"
	"outagereminder/internal/rate"
	"outagereminder/internal/reminder"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// snapshotTTL is how long a parsed channel is served before it is fetched again.
const snapshotTTL = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.RequireChannel(); err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.Logging, "outage-api")
	if err != nil {
		log.Fatalf("log error: %v", err)
	}
	defer func() {
		_ = cleanup()
	}()
	slog.SetDefault(logger)

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Error("startup_failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	var history handlers.HistoryStore
	if a.Repo != nil {
		history = a.Repo
	}
	cache := reminder.NewCache(a.Service, app.RunOptions(cfg), snapshotTTL)
	h := handlers.New(cache, history, cfg.Location(), calendar.SummaryPrefix, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(h, a.Metrics, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutdown", "service", "outage-api")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
}

func newRouter(h *handlers.Handler, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", m.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(45 * time.Second))
		r.Use(middleware.RateLimit(rate.NewWindowLimiter(60, time.Minute)))
		r.Get("/schedule", h.Schedule)
		r.Get("/schedule.ics", h.ScheduleICS)
		r.Get("/history", h.History)
	})
	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
