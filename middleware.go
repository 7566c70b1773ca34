package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"
)

type ctxKey string

const ctxUserKey ctxKey = "user"

const sessionCookie = "ctrlos_session"

var sessionTTL = 480 * time.Minute

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/auth/") || p == "/health" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth resolves the session cookie to a user and stores it in
// the request context. Session expiry slides forward on each request.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		public := p == "/auth/login" || p == "/health" ||
			(!strings.HasPrefix(p, "/api/v1/") && !strings.HasPrefix(p, "/auth/") && p != "/ws")
		if public {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			jsonErr(w, "Authentication required", 401)
			return
		}

		user, ok := resolveSession(cookie.Value)
		if !ok {
			jsonErr(w, "Session expired or invalid", 401)
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func resolveSession(token string) (User, bool) {
	var u User
	err := db.QueryRow(`
		SELECT u.id, u.name, u.email, u.role, u.active
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > CURRENT_TIMESTAMP`, token).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Active)
	if err != nil {
		db.Exec("DELETE FROM sessions WHERE token = ?", token)
		return User{}, false
	}
	if u.Active == 0 {
		db.Exec("DELETE FROM sessions WHERE user_id = ?", u.ID)
		return User{}, false
	}

	db.Exec("UPDATE sessions SET expires_at = ? WHERE token = ?",
		time.Now().UTC().Add(sessionTTL).Format("2006-01-02 15:04:05"), token)
	return u, true
}

// requireRBAC enforces role access: readonly users can only read,
// user management and settings changes are admin only.
func requireRBAC(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := r.Context().Value(ctxUserKey).(User)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		if user.Role == "readonly" && r.Method != http.MethodGet &&
			r.URL.Path != "/auth/logout" {
			jsonErr(w, "Read-only access", 403)
			return
		}

		adminOnly := strings.HasPrefix(r.URL.Path, "/api/v1/users") ||
			strings.HasPrefix(r.URL.Path, "/api/v1/audit") ||
			(strings.HasPrefix(r.URL.Path, "/api/v1/settings") && r.Method != http.MethodGet)
		if adminOnly && user.Role != "admin" {
			jsonErr(w, "Admin access required", 403)
			return
		}

		next.ServeHTTP(w, r)
	})
}
