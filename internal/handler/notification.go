package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/chorespec/chorespec/internal/model"
	"github.com/chorespec/chorespec/internal/store"
)

type NotificationHandler struct {
	notifications *store.NotificationStore
	logger        *slog.Logger
}

func NewNotificationHandler(notifications *store.NotificationStore, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// ListByUser returns a member's notifications, optionally unread only,
// with skip/limit paging. The unread count rides along for badges.
func (h *NotificationHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "user_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	q := r.URL.Query()
	unreadOnly := q.Get("unread_only") == "true"
	skip, _ := strconv.Atoi(q.Get("skip"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	notifications, err := h.notifications.ListByUser(userID, unreadOnly, skip, limit)
	if err != nil {
		h.logger.Error("list notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}

	unread, err := h.notifications.CountUnread(userID)
	if err != nil {
		h.logger.Error("count unread", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

// MarkRead marks one notification read. The body carries the owner's
// user_id; someone else's notification comes back 404.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	notification, err := h.notifications.MarkRead(id, req.UserID)
	if err != nil {
		h.logger.Error("mark notification read", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mark notification read")
		return
	}
	if notification == nil {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	writeJSON(w, http.StatusOK, notification)
}

// MarkAllRead clears a member's unread set.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.notifications.MarkAllRead(req.UserID); err != nil {
		h.logger.Error("mark all read", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
}
