package middleware

import (
	"context"
	"net/http"

	"chatdesk/internal/authtoken"
	"chatdesk/internal/logger"
	"chatdesk/internal/reqctx"
	"chatdesk/internal/services"
	"chatdesk/internal/utils/helpers"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) services.Result
}

// SessionAuth resolves the bearer token (query, header, cookie session),
// validates it and stores the user id and token in the request context.
func SessionAuth(auth SessionValidator, store sessions.Store, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			token, ok := authtoken.Token(r, store, cookieName)
			if !ok {
				logger.WithCtx(r.Context()).Info("SessionAuth: no token supplied")
				helpers.JSON(w, http.StatusUnauthorized, services.Result{Message: "missing session token"})
				return
			}

			res := auth.ValidateSession(r.Context(), token)
			if !res.Success {
				helpers.JSON(w, helpers.StatusFor(res.Kind), res)
				return
			}

			ctx := reqctx.WithUserID(r.Context(), *res.UserID)
			ctx = reqctx.WithToken(ctx, token)

			logger.WithCtx(ctx).Debug("SessionAuth: session valid", zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
