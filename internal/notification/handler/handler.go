package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"civreg/internal/notification/models"
	"civreg/internal/platform/middleware"
	"civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/httputil"
	"civreg/pkg/requestcontext"
)

// Service defines the notification operations the handler exposes.
type Service interface {
	List(ctx context.Context, userID domain.UserID, limit int) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, userID domain.UserID) (int, error)
	MarkRead(ctx context.Context, userID domain.UserID, id domain.NotificationID) error
	MarkAllRead(ctx context.Context, userID domain.UserID) (int, error)
	Stream(ctx context.Context, userID domain.UserID) (<-chan *models.Notification, func(), error)
}

type Handler struct {
	logger        *slog.Logger
	notifications Service
	jwtValidator  middleware.JWTValidator
}

func New(notifications Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:        logger,
		notifications: notifications,
		jwtValidator:  jwtValidator,
	}
}

// Register mounts the notification routes. Every route requires
// authentication; notifications are always scoped to the caller.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	router.Get("/", h.handleList)
	router.Get("/unread-count", h.handleUnreadCount)
	router.Post("/{id}/read", h.handleMarkRead)
	router.Post("/read-all", h.handleMarkAllRead)
	router.Get("/stream", h.handleStream)

	r.Mount("/notifications", router)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notifications, err := h.notifications.List(ctx, requestcontext.UserID(ctx), 100)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list notifications",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := h.notifications.UnreadCount(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.notifications.MarkRead(ctx, requestcontext.UserID(ctx), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	changed, err := h.notifications.MarkAllRead(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"marked": changed})
}

// handleStream serves live notifications over Server-Sent Events. The stored
// copies remain authoritative; a dropped stream just means the client
// re-fetches the list.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	ch, cancel, err := h.notifications.Stream(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to open notification stream",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case n, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(n)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: notification\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
