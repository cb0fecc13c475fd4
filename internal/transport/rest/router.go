package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"tabletop/internal/service"
	"tabletop/internal/transport/rest/handler"
	"tabletop/internal/transport/rest/middleware"
	"tabletop/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService *service.AuthService
	GameService *service.GameService
	WSHandler   *ws.Handler
	CORSOrigins string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	roomHandler := handler.NewRoomHandler(c.GameService)
	matchHandler := handler.NewMatchHandler(c.GameService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSOrigins))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/ws", c.WSHandler.ServeWS).Methods("GET")
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/rooms/{roomId}/summary", roomHandler.Summary).Methods("GET", "OPTIONS")
	v1.HandleFunc("/matches/user/{userId}", matchHandler.ByUser).Methods("GET", "OPTIONS")

	// Operator routes
	opRoutes := v1.NewRoute().Subrouter()
	opRoutes.Use(authMW.RequireOperator)

	opRoutes.HandleFunc("/rooms", roomHandler.List).Methods("GET", "OPTIONS")
	opRoutes.HandleFunc("/rooms/{roomId}", roomHandler.Get).Methods("GET", "OPTIONS")
	opRoutes.HandleFunc("/rooms/{roomId}", roomHandler.Close).Methods("DELETE", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
