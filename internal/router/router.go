package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/swiftdrop/api/internal/config"
	"github.com/swiftdrop/api/internal/database"
	"github.com/swiftdrop/api/internal/enum"
	"github.com/swiftdrop/api/internal/handler"
	mw "github.com/swiftdrop/api/internal/middleware"
	"github.com/swiftdrop/api/internal/push"
	"github.com/swiftdrop/api/internal/service"
	"github.com/swiftdrop/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Authentication and role checks are applied per route group.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration. The mobile clients talk to us from app webviews and
	// the Expo dev server.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	notifier := push.NewNotifier(queries)

	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newOrderStore)
	orderHandler := handler.NewOrderHandler(orderService, queries, hub, notifier)
	storeHandler := handler.NewStoreHandler(queries)
	chatHandler := handler.NewChatHandler(queries, hub)
	reportsHandler := handler.NewReportsHandler(queries)
	pushHandler := handler.NewPushHandler(queries)
	wsHandler := handler.NewWSHandler(queries, hub)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Store directory, readable by every signed-in user.
		r.Route("/stores", func(r chi.Router) {
			// Owner management routes carry their own role check and must be
			// registered first so /stores/mine wins over /stores/{id}.
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleStoreOwner))
				storeHandler.RegisterOwnerRoutes(r)
			})
			storeHandler.RegisterRoutes(r)

			// Chat threads hang off the store they belong to.
			r.Route("/{id}/chat", chatHandler.RegisterRoutes)
		})

		// Orders; role scoping happens inside the handlers.
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Rider delivery pool
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleRider))
			r.Route("/deliveries", orderHandler.RegisterDeliveryRoutes)
		})

		// Owner sales reports
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleStoreOwner))
			r.Route("/reports", reportsHandler.RegisterRoutes)
		})

		// Push token registration
		r.Route("/push", pushHandler.RegisterRoutes)

		// WebSocket subscriptions
		r.Route("/ws", wsHandler.RegisterRoutes)
	})

	return r
}
