package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

// Health is the liveness probe. It bypasses the response envelope on
// purpose; probes want a fixed shape.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
