package api

import (
	"net/http"
	"time"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/handler"
	"github.com/sowerhq/sower/internal/middleware"
	"github.com/sowerhq/sower/internal/service"
)

// NotificationHandler exposes the donor's in-app notification feed.
type NotificationHandler struct {
	notifications service.NotificationService
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(notifications service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

type notificationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func toNotificationResponse(n *domain.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID.String(),
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

// List handles GET /api/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit, offset := pagination(r)
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.notifications.ListNotifications(r.Context(), userID, unreadOnly, limit, offset)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	unread, err := h.notifications.UnreadCount(r.Context(), userID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	out := make([]notificationResponse, 0, len(notifications))
	for i := range notifications {
		out = append(out, toNotificationResponse(&notifications[i]))
	}
	handler.JSON(w, http.StatusOK, map[string]any{
		"notifications": out,
		"unreadCount":   unread,
	})
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	notificationID, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.notifications.MarkRead(r.Context(), userID, notificationID); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, map[string]any{"read": true})
}

// MarkAllRead handles POST /api/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	updated, err := h.notifications.MarkAllRead(r.Context(), userID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, map[string]any{"updated": updated})
}
