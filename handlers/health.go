package handlers

import (
	"log"
	"net/http"
)

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.Storage.Ping(r.Context()); err != nil {
		log.Printf("Storage ping failed: %s", err.Error())
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
