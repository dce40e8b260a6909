// ChopDesk - restaurant operations dashboard
// Entry point for the API server
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kwabenadev/chopdesk/internal/api"
	"github.com/kwabenadev/chopdesk/internal/config"
	"github.com/kwabenadev/chopdesk/internal/handlers"
	"github.com/kwabenadev/chopdesk/internal/middleware"
	"github.com/kwabenadev/chopdesk/internal/services/notify"
	"github.com/kwabenadev/chopdesk/internal/services/ratelimit"
	"github.com/kwabenadev/chopdesk/internal/services/session"
	"github.com/kwabenadev/chopdesk/internal/storage"
)

func main() {
	cfg := config.Load()

	// Durable client-state store
	store, err := storage.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open client-state store: %v", err)
	}
	defer store.Close()

	// Upstream operations API
	client := api.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout)

	// Services
	limiter := ratelimit.NewLimiter(store)
	sessions := session.NewManager(store, client, limiter)
	notifications := notify.NewStore(store)
	alerts := notify.NewAlerts(client)

	authMiddleware := middleware.NewAuth(cfg.SecretKey, cfg.SessionDuration, sessions)
	h := handlers.New(cfg, store, client, sessions, notifications, alerts, authMiddleware)

	// Incoming-order polling runs until shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go alerts.Poll(ctx, cfg.AlertPollInterval)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Public routes
	r.Post("/api/auth/login", h.Login)
	r.Post("/api/auth/logout", h.Logout)
	r.Get("/api/auth/session", h.SessionInfo)

	// Permitted only while a login awaits its second factor
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequirePending2FA)
		r.Post("/api/auth/verify", h.VerifyOTP)
	})

	// Protected routes (require full authentication)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Get("/api/notifications", h.ListNotifications)
		r.Post("/api/notifications/{id}/read", h.MarkNotificationRead)
		r.Delete("/api/notifications/{id}", h.RemoveNotification)
		r.Delete("/api/notifications", h.ClearNotifications)

		r.Get("/api/alerts", h.ListAlerts)
		r.Post("/api/alerts/{id}/accept", h.AcceptAlert)
		r.Post("/api/alerts/{id}/decline", h.DeclineAlert)

		r.Post("/api/orders", h.CreateOrder)
		r.Post("/api/orders/batch", h.CreateBatch)
		r.Put("/api/orders/{id}", h.EditOrder)
		r.Post("/api/orders/{id}/status", h.UpdateOrderStatus)

		r.Get("/api/branches", h.ListBranches)
		r.Post("/api/branches/select", h.SelectBranch)
		r.Get("/api/inventory", h.ListInventory)

		r.Get("/api/extras-groups", h.ListExtrasGroups)
		r.Post("/api/extras-groups", h.CreateExtrasGroup)
		r.Put("/api/extras-groups/{id}", h.UpdateExtrasGroup)
		r.Delete("/api/extras-groups/{id}", h.DeleteExtrasGroup)
		r.Post("/api/extras-groups/validate", h.ValidateExtras)
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	log.Printf("ChopDesk server running on http://localhost:%s", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
