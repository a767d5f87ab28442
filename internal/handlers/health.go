package handlers

import "net/http"

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, http.StatusOK, "ok", nil)
}
