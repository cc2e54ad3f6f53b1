package handlers

import (
	"fmt"
	"net/http"

	"cryptosim/src/utils"
)

func Healthcheck(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		fmt.Fprintf(w, "Im alive!")
	} else {
		fmt.Fprintf(w, "Method not available: %s", r.Method)
	}
}

// Ready pings the store, the same check the service runs at start-up.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		utils.LoggerFromContext(r.Context()).WithError(err).Warn("store ping failed")
		h.HandleErrors(w, r, utils.ServiceUnavailable("database unavailable"))
		return
	}
	h.respond(w, r, map[string]string{"status": "ok"}, http.StatusOK)
}
