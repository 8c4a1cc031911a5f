package session

import (
	"context"
	"net/http"
)

type contextKey string

const usernameKey contextKey = "session_username"

// HeaderName carries the session id when the query parameter is absent.
const HeaderName = "X-Session-ID"

// RequireSession rejects requests without a valid session with 401. The id
// is read from the session_id query parameter or the X-Session-ID header.
func RequireSession(m *Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ExtractID(r)
			if id == "" {
				writeError(w, http.StatusUnauthorized, "missing session")
				return
			}
			username, ok, err := m.Validate(r.Context(), id)
			if err != nil {
				m.logger.Error("session lookup failed", "error", err)
				writeError(w, http.StatusServiceUnavailable, "session store unavailable")
				return
			}
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}
			ctx := context.WithValue(r.Context(), usernameKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Username returns the authenticated user set by RequireSession.
func Username(ctx context.Context) string {
	name, _ := ctx.Value(usernameKey).(string)
	return name
}

// ExtractID reads the session id from the request.
func ExtractID(r *http.Request) string {
	if id := r.URL.Query().Get("session_id"); id != "" {
		return id
	}
	return r.Header.Get(HeaderName)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
