package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cryptosim/src/repositories"
	"cryptosim/src/services"
	"cryptosim/src/utils"
)

const (
	// maxBodyBytes bounds every JSON request body.
	maxBodyBytes = 1 << 20
	// statusClientClosedRequest is nginx's code for a client that hung up.
	statusClientClosedRequest = 499
)

type Handler struct {
	Auth    services.AuthServiceI
	Trading services.TradingServiceI
	Store   repositories.Store
	Timeout time.Duration
}

func NewHandler(auth services.AuthServiceI, trading services.TradingServiceI, store repositories.Store, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handler{
		Auth:    auth,
		Trading: trading,
		Store:   store,
		Timeout: timeout,
	}
}

func (h *Handler) respond(w http.ResponseWriter, _ *http.Request, data interface{}, status int) {
	res, err := json.Marshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(res)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return utils.BadRequest(services.ErrValidation.Message)
	}
	return nil
}

// HandleErrors writes err as {"error": message} with the status its kind
// maps to. Unexpected failures are logged with the request's logger.
func (h *Handler) HandleErrors(w http.ResponseWriter, r *http.Request, err error) {
	logger := utils.LoggerFromContext(r.Context())

	var httpErr *utils.HTTPError
	var svcErr *services.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		logger.WithError(err).Warn("request timed out")
		h.respond(w, r, map[string]string{"error": "Request timed out"}, http.StatusGatewayTimeout)
	case errors.Is(err, context.Canceled):
		// The client is usually gone; the status is only seen by the access log.
		logger.WithError(err).Warn("request cancelled")
		h.respond(w, r, map[string]string{"error": "Request cancelled"}, statusClientClosedRequest)
	case errors.As(err, &httpErr):
		h.respond(w, r, httpErr, httpErr.Code)
	case errors.As(err, &svcErr):
		status := statusForKind(svcErr.Kind)
		if status >= http.StatusInternalServerError {
			logger.WithError(err).WithField("kind", svcErr.Kind).Error("request failed")
		}
		h.respond(w, r, map[string]string{"error": svcErr.Message}, status)
	case err != nil:
		logger.WithError(err).Error("unhandled error")
		h.respond(w, r, map[string]string{"error": "Error interno del servidor"}, http.StatusInternalServerError)
	default:
		h.respond(w, r, map[string]string{"error": "Unhandled error"}, http.StatusInternalServerError)
	}
}

func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation,
		services.KindDuplicateEmail,
		services.KindInsufficientFunds,
		services.KindInsufficientHoldings:
		return http.StatusBadRequest
	case services.KindInvalidCredentials, services.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.Timeout)
}
