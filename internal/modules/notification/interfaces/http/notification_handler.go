package http

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/attendify/notify-agent/internal/gateway/middleware"
	"github.com/attendify/notify-agent/internal/modules/notification/application"
	"github.com/attendify/notify-agent/internal/modules/notification/domain"
	"github.com/attendify/notify-agent/internal/modules/notification/infrastructure/websocket"
	"github.com/attendify/notify-agent/internal/shared/utils"
)

// Connector opens and closes the upstream feed on behalf of a caller.
type Connector interface {
	Connect(role string)
	Disconnect()
}

type NotificationHandler struct {
	service   *application.NotificationService
	connector Connector
	hub       *websocket.Hub
	logger    *zap.Logger
}

func NewNotificationHandler(service *application.NotificationService, connector Connector, hub *websocket.Hub, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{service: service, connector: connector, hub: hub, logger: logger}
}

// Subscribe asks the connection manager to open the feed for the caller and,
// for superadmins, upgrades the request into a relay client.
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	role := middleware.Role(r.Context())

	h.connector.Connect(role)
	if role != domain.RoleSuperAdmin {
		utils.WriteError(w, http.StatusForbidden, "live notifications are limited to superadmin", nil)
		return
	}

	websocket.ServeWs(h.hub, w, r, userID)
}

func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	snapshot := h.service.Store().Snapshot()
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"data":   snapshot,
		"unread": domain.CountUnread(snapshot),
	})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]int{
		"count": domain.CountUnread(h.service.Store().Snapshot()),
	})
}

// MarkAsRead answers 202 once the optimistic change is visible; the backend
// confirmation happens in the background.
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "invalid notification id", nil)
		return
	}

	if !h.service.MarkAsRead(domain.ID(id)) {
		utils.WriteError(w, http.StatusNotFound, "notification not found", nil)
		return
	}
	h.logger.Debug("mark as read accepted", zap.String("id", id))
	w.WriteHeader(http.StatusAccepted)
}

func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	h.service.MarkAllAsRead()
	w.WriteHeader(http.StatusAccepted)
}

// Refresh runs a full resynchronization before answering.
func (h *NotificationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.service.Fetch(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Disconnect closes the upstream feed and clears the cached set, as on logout.
func (h *NotificationHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.connector.Disconnect()
	w.WriteHeader(http.StatusNoContent)
}
