package middleware

import (
	"net/http"

	"github.com/jmcampos/despensa/internal/auth"
	"github.com/jmcampos/despensa/internal/store"
)

const sessionCookieName = "despensa_session"

// SessionCookieName is the cookie carrying the session token. Exposed so the
// auth handler sets and clears the same cookie the middleware reads.
const SessionCookieName = sessionCookieName

// RequireAuth validates the session cookie and populates the request's
// AuthContext. Requests without a live session get a 401 JSON body; the
// client owns redirecting to its login view.
func RequireAuth(sessionStore *store.SessionStore, userStore *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessionStore.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			user, err := userStore.GetByID(sess.UserID)
			if err != nil || user == nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:    sess.UserID,
				SessionID: sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized"}`))
}
