// Package httputil provides JSON response helpers shared by the API handlers.
package httputil

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Envelope is the dashboard API's standard response wrapper.
type Envelope struct {
	Data      interface{} `json:"data"`
	Success   bool        `json:"success"`
	Timestamp string      `json:"timestamp"`
}

// WriteJSON writes a JSON response with the given status code and data.
// It properly checks for encoding errors and logs them.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// WriteData wraps payload in the standard {data, success, timestamp} envelope.
func WriteData(w http.ResponseWriter, status int, payload interface{}) {
	WriteJSON(w, status, Envelope{
		Data:      payload,
		Success:   status < http.StatusBadRequest,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]interface{}{
		"error":     message,
		"success":   false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
