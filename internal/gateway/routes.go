package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/attendify/notify-agent/internal/gateway/middleware"
	"github.com/attendify/notify-agent/internal/modules/notification/domain"
	notification_http "github.com/attendify/notify-agent/internal/modules/notification/interfaces/http"
)

// RouterConfig holds all the handlers and middleware needed for routing
type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleWare
	NotificationHandler *notification_http.NotificationHandler
	// JournalHandler is optional; the journal route is only registered when set.
	JournalHandler *notification_http.JournalHandler
	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
}

// SetupRoutes creates and configures all application routes
func SetupRoutes(config RouterConfig) *http.ServeMux {
	r := NewRouter(config.AuthMiddleware)

	// Health Check
	r.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus Metrics Endpoint
	gatherer := config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Notification Routes
	h := config.NotificationHandler
	r.Authed("GET /notifications", h.ListNotifications)
	r.Authed("GET /notifications/unread-count", h.UnreadCount)
	r.WithRole("POST /notifications/read/{id}", h.MarkAsRead, domain.RoleSuperAdmin)
	r.WithRole("POST /notifications/read-all", h.MarkAllAsRead, domain.RoleSuperAdmin)
	r.WithRole("POST /notifications/refresh", h.Refresh, domain.RoleSuperAdmin)
	r.WithRole("POST /notifications/disconnect", h.Disconnect, domain.RoleSuperAdmin)
	r.Authed("GET /ws", h.Subscribe)
	if config.JournalHandler != nil {
		r.WithRole("GET /notifications/journal", config.JournalHandler.Recent, domain.RoleSuperAdmin)
	}

	return r.Mux()
}
