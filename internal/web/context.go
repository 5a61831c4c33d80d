package web

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey int

const userKey ctxKey = 0

// userFromContext returns the authenticated user ID stored by requireUser.
func userFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userKey).(string)
	return id
}

// requireUser extracts the caller identity from the X-User-ID header set
// by the auth proxy in front of this service. Requests without it are
// rejected; user identity scopes every dataset operation.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if userID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"missing X-User-ID header","code":"AUTH001"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, userID)))
	})
}
