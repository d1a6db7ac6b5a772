package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pulseboard/notifications/internal/notify"
	"github.com/pulseboard/notifications/internal/perms"
	"github.com/pulseboard/notifications/internal/store"
	ws "github.com/pulseboard/notifications/internal/websocket"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(pgStore *store.PostgresStore, svc *notify.Service, agg *perms.Aggregator, hub *ws.Hub) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// CORS for dashboard
	r.Use(corsMiddleware)

	// Handlers
	pulseHandler := NewPulseHandler(pgStore, svc, agg)
	alertHandler := NewAlertHandler(pgStore, svc, agg)
	notifHandler := NewNotificationHandler(pgStore, svc, agg)

	// WebSocket lifecycle event feed
	r.Get("/ws", hub.HandleWebSocket)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler())

		r.Route("/pulses", func(r chi.Router) {
			r.Post("/", pulseHandler.Create)
			r.Get("/", pulseHandler.List)
			r.Get("/{id}", pulseHandler.Get)
			r.Put("/{id}", pulseHandler.Update)
			r.Delete("/{id}", notifHandler.Delete)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Post("/", alertHandler.Create)
			r.Get("/", alertHandler.List)
			r.Get("/{id}", alertHandler.Get)
			r.Put("/{id}", alertHandler.Update)
			r.Delete("/{id}", notifHandler.Delete)
			r.Delete("/{id}/subscription", alertHandler.Unsubscribe)
		})

		r.Get("/notifications/{id}", notifHandler.Get)
		r.Get("/cards/{cardID}/alerts", alertHandler.ListForCard)
		r.Get("/stats", notifHandler.Stats)
	})

	return r
}

// corsMiddleware adds CORS headers for dashboard development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-Id, X-User-Email")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
