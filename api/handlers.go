package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vainnor/delivery-tracking/realtime"
)

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetLastLocation serves the last known position for a delivery over REST so
// surrounding tooling can poll without holding a channel open.
func GetLastLocation(engine *realtime.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		deliveryID := vars["deliveryId"]

		sample, found, err := engine.LastKnown(r.Context(), deliveryID)
		if err != nil {
			var ve *realtime.ValidationError
			if errors.As(err, &ve) {
				http.Error(w, ve.Message, http.StatusBadRequest)
				return
			}
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if !found {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "No tracking data for delivery"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sample)
	}
}

// GetHubStats reports live fan-out counters for the ops dashboard.
func GetHubStats(hub *realtime.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(hub.Stats())
	}
}
