package handlers

import (
	"context"
	"net/http"

	"cryptosim/src/utils"

	"github.com/go-chi/jwtauth"
)

type sessionKey struct{}

// RequireSession rejects requests without a valid bearer token and stores
// the authenticated user id in the request context.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := jwtauth.TokenFromHeader(r)
		if token == "" {
			h.HandleErrors(w, r, utils.Unauthorized("Token requerido"))
			return
		}
		userID, err := h.Auth.Authenticate(token)
		if err != nil {
			h.HandleErrors(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, userID)
		ctx = utils.WithLogger(ctx, utils.LoggerFromContext(ctx).WithField("session_user_id", userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionUserID returns the user id set by RequireSession.
func SessionUserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(sessionKey{}).(int64)
	return id, ok
}

// authorize checks that the session owns the account being acted on.
func authorize(ctx context.Context, userID int64) error {
	sessionID, ok := SessionUserID(ctx)
	if !ok {
		return utils.Unauthorized("Token requerido")
	}
	if sessionID != userID {
		return utils.Forbidden("No autorizado para operar sobre este usuario")
	}
	return nil
}
