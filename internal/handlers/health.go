package handlers

import (
	"net/http"
)

// HealthCheck returns a simple JSON status.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "clurb-api"})
}
