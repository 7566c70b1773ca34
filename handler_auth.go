package main

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func handleAuth(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/auth/login" && r.Method == http.MethodPost:
		handleLogin(w, r)
	case r.URL.Path == "/auth/logout" && r.Method == http.MethodPost:
		handleLogout(w, r)
	case r.URL.Path == "/auth/me" && r.Method == http.MethodGet:
		handleMe(w, r)
	default:
		jsonErr(w, "Not found", 404)
	}
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }

	var userID, active int
	var hash string
	err := db.QueryRow("SELECT id, password_hash, active FROM users WHERE email=?", body.Email).
		Scan(&userID, &hash, &active)
	if err != nil || active == 0 {
		jsonErr(w, "invalid credentials", 401)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(body.Password)) != nil {
		jsonErr(w, "invalid credentials", 401)
		return
	}

	token := uuid.NewString()
	now := time.Now().UTC()
	_, err = db.Exec("INSERT INTO sessions (token,user_id,created_at,expires_at) VALUES (?,?,?,?)",
		token, userID,
		now.Format("2006-01-02 15:04:05"),
		now.Add(sessionTTL).Format("2006-01-02 15:04:05"))
	if err != nil { jsonErr(w, err.Error(), 500); return }

	db.Exec("UPDATE users SET last_login=? WHERE id=?", now.Format("2006-01-02 15:04:05"), userID)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})

	u, _ := scanUser(db.QueryRow("SELECT "+userCols+" FROM users WHERE id=?", userID).Scan)
	jsonResp(w, u)
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		db.Exec("DELETE FROM sessions WHERE token=?", cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	jsonResp(w, map[string]string{"status": "logged out"})
}

func handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(ctxUserKey).(User)
	if !ok {
		jsonErr(w, "Authentication required", 401)
		return
	}
	jsonResp(w, user)
}
