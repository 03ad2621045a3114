package gateway

import (
	"net/http"

	"github.com/attendify/notify-agent/internal/gateway/middleware"
)

// Router wraps http.ServeMux and provides route registration behind the
// auth middleware.
type Router struct {
	mux  *http.ServeMux
	auth *middleware.AuthMiddleWare
}

// NewRouter creates a new router. auth may be nil when no protected routes
// are registered.
func NewRouter(auth *middleware.AuthMiddleWare) *Router {
	return &Router{
		mux:  http.NewServeMux(),
		auth: auth,
	}
}

// Mux returns the underlying http.ServeMux
func (r *Router) Mux() *http.ServeMux {
	return r.mux
}

// Handle registers a handler for the given pattern
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, handler)
}

// HandleFunc registers a handler function for the given pattern
func (r *Router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.mux.HandleFunc(pattern, handler)
}

// Authed registers handler behind RequireAuth.
func (r *Router) Authed(pattern string, handler http.HandlerFunc) {
	r.mux.Handle(pattern, r.auth.RequireAuth(handler))
}

// WithRole registers handler behind RequireAuth and RequireRole.
func (r *Router) WithRole(pattern string, handler http.HandlerFunc, roles ...string) {
	r.mux.Handle(pattern, r.auth.RequireAuth(middleware.RequireRole(handler, roles...)))
}
