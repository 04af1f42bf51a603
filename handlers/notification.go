package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/utils"
)

type NotificationHandler struct {
	base
	hub *utils.Hub
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Notifications.List(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, list)
}

func notificationID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	return id, err == nil && id > 0
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, valid := notificationID(r)
	if !valid {
		badRequest(w, "Invalid ID")
		return
	}
	if err := h.svc.Notifications.MarkRead(r.Context(), userID(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, map[string]any{"message": "Notification marked as read", "id": id})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, valid := notificationID(r)
	if !valid {
		badRequest(w, "Invalid ID")
		return
	}
	if err := h.svc.Notifications.Delete(r.Context(), userID(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, map[string]any{"message": "Notification deleted", "id": id})
}

// Live upgrades to a websocket that receives the caller's new notifications.
func (h *NotificationHandler) Live(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorBody{Detail: "Live notifications are disabled"})
		return
	}
	if err := h.hub.Serve(r.Context(), w, r, userID(r)); err != nil {
		// The upgrader has already replied.
		h.logger.Debug("websocket closed", zap.String("user_id", userID(r)), zap.Error(err))
	}
}
