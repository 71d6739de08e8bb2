package api

import (
	"github.com/gorilla/mux"

	"github.com/vainnor/delivery-tracking/realtime"
)

// NewRouter creates and configures a new router with the websocket endpoint
// and all REST endpoints
func NewRouter(hub *realtime.Hub, engine *realtime.Engine) *mux.Router {
	r := mux.NewRouter()

	// Tracking channel endpoint
	r.HandleFunc("/ws", realtime.ServeWS(hub, engine))

	// API key management endpoints
	r.HandleFunc("/api/keys", CreateAPIKey).Methods("POST")
	r.HandleFunc("/api/keys", ListAPIKeys).Methods("GET")
	r.HandleFunc("/api/keys/{id}", DeleteAPIKey).Methods("DELETE")

	// Apply rate limiting middleware to all other routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(RateLimit)

	api.HandleFunc("/health", HandleHealth).Methods("GET")
	api.HandleFunc("/deliveries/{deliveryId}/location", GetLastLocation(engine)).Methods("GET")
	api.HandleFunc("/stats", GetHubStats(hub)).Methods("GET")

	return r
}
