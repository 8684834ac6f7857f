package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"givebridge/internal/notification/models"
	"givebridge/internal/platform/middleware"
	"givebridge/internal/transport/http/shared"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
)

// Service defines the notification operations the handler exposes.
type Service interface {
	ListForUser(ctx context.Context, userID id.UserID) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID id.NotificationID, userID id.UserID) error
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: svc}
}

// Register mounts the notification routes. The caller applies auth.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Post("/notifications/{notificationID}/read", h.handleMarkRead)
}

type notificationResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := middleware.GetCaller(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	notifications, err := h.service.ListForUser(ctx, caller.UserID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	responses := make([]notificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, notificationResponse{
			ID:        notification.ID.String(),
			Message:   notification.Message,
			Read:      notification.Read,
			CreatedAt: notification.CreatedAt,
		})
	}
	shared.WriteJSON(w, http.StatusOK, responses)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := middleware.GetCaller(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "notificationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.MarkRead(ctx, notificationID, caller.UserID); err != nil {
		h.logger.WarnContext(ctx, "mark read failed",
			"request_id", middleware.GetRequestID(ctx),
			"notification_id", notificationID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
