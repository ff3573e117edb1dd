package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/volunthub/internal/middleware"
	"github.com/hitoshi/volunthub/internal/model"
)

// NotificationServiceInterface は通知ハンドラーが必要とするサービスインターフェース。
type NotificationServiceInterface interface {
	ListNotifications(ctx context.Context, volunteerID string) ([]*model.Notification, error)
	MarkRead(ctx context.Context, volunteerID, notificationID string) error
	DeleteNotification(ctx context.Context, volunteerID, notificationID string) error
}

// NotificationHandler は通知のHTTPハンドラー。自分宛の通知のみ操作できる。
type NotificationHandler struct {
	service NotificationServiceInterface
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(service NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// notificationResponse は通知のAPIレスポンス。
type notificationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	EventID   string    `json:"event_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// ListNotifications は自分の通知一覧を新着順で返す。
// GET /api/notifications
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	volunteerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	notifications, err := h.service.ListNotifications(r.Context(), volunteerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, notificationResponse{
			ID:        n.ID,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			EventID:   n.EventID,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// MarkRead は通知を既読にする。
// POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	volunteerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	notificationID := chi.URLParam(r, "id")

	if err := h.service.MarkRead(r.Context(), volunteerID, notificationID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteNotification は通知を削除する。
// DELETE /api/notifications/:id
func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	volunteerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	notificationID := chi.URLParam(r, "id")

	if err := h.service.DeleteNotification(r.Context(), volunteerID, notificationID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
