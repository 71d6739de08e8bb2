package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/vainnor/delivery-tracking/db"
)

// APIKey grants a REST consumer (ops dashboards, order service) a pass
// around the per-IP rate limit.
type APIKey struct {
	ID          int       `json:"id"`
	Key         string    `json:"key"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at,omitempty"`
	IsActive    bool      `json:"is_active"`
}

func generateAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// requireMasterKey rejects the request unless the Authorization header
// carries the master key. Returns false when the response is already written.
func requireMasterKey(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != os.Getenv("MASTER_API_KEY") {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

// CreateAPIKey mints a new API key
func CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	if !requireMasterKey(w, r) {
		return
	}

	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	key, err := generateAPIKey()
	if err != nil {
		http.Error(w, "Failed to generate API key", http.StatusInternalServerError)
		return
	}

	var apiKey APIKey
	err = db.DB.QueryRow(`
		INSERT INTO api_keys (key, description)
		VALUES ($1, $2)
		RETURNING id, key, description, created_at, is_active
	`, key, req.Description).Scan(
		&apiKey.ID,
		&apiKey.Key,
		&apiKey.Description,
		&apiKey.CreatedAt,
		&apiKey.IsActive,
	)
	if err != nil {
		http.Error(w, "Failed to create API key", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiKey)
}

// DeleteAPIKey removes an API key by id
func DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	if !requireMasterKey(w, r) {
		return
	}

	id := mux.Vars(r)["id"]
	result, err := db.DB.Exec("DELETE FROM api_keys WHERE id = $1", id)
	if err != nil {
		http.Error(w, "Failed to delete API key", http.StatusInternalServerError)
		return
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		http.Error(w, "API key not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListAPIKeys lists all API keys
func ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	if !requireMasterKey(w, r) {
		return
	}

	rows, err := db.DB.Query(`
		SELECT id, key, description, created_at, last_used_at, is_active
		FROM api_keys
		ORDER BY created_at DESC
	`)
	if err != nil {
		http.Error(w, "Failed to list API keys", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	keys := []APIKey{}
	for rows.Next() {
		var apiKey APIKey
		var lastUsedAt *time.Time
		if err := rows.Scan(
			&apiKey.ID,
			&apiKey.Key,
			&apiKey.Description,
			&apiKey.CreatedAt,
			&lastUsedAt,
			&apiKey.IsActive,
		); err != nil {
			continue
		}
		if lastUsedAt != nil {
			apiKey.LastUsedAt = *lastUsedAt
		}
		keys = append(keys, apiKey)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(keys)
}

// ValidateAPIKey checks a key and stamps last_used_at when it matches an
// active key.
func ValidateAPIKey(key string) bool {
	var ok bool
	err := db.DB.QueryRow(`
		UPDATE api_keys
		SET last_used_at = NOW()
		WHERE key = $1 AND is_active = true
		RETURNING true
	`, key).Scan(&ok)
	return err == nil && ok
}
