package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"outagereminder/internal/outage"
	"outagereminder/internal/reminder"
	"outagereminder/internal/repository"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// SnapshotProvider returns the current parsed schedule.
type SnapshotProvider interface {
	Current(ctx context.Context) (reminder.Snapshot, error)
}

// HistoryStore lists archived records.
type HistoryStore interface {
	ListRange(ctx context.Context, from, to outage.Date, group string) ([]repository.ArchivedRecord, error)
}

type Handler struct {
	snapshots SnapshotProvider
	history   HistoryStore
	loc       *time.Location
	feedName  string
	logger    *slog.Logger
	validator *validator.Validate
}

// New builds the handlers. history may be nil when no database is configured.
func New(snapshots SnapshotProvider, history HistoryStore, loc *time.Location, feedName string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		snapshots: snapshots,
		history:   history,
		loc:       loc,
		feedName:  feedName,
		logger:    logger,
		validator: validator.New(),
	}
}

// withTimeout bounds a request; a cold snapshot fetches the channel.
func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 30*time.Second)
}

func (h *Handler) loggerForRequest(r *http.Request) *slog.Logger {
	logger := h.logger
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}
