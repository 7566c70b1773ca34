package main

import (
	"database/sql"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const userCols = "id,COALESCE(name,''),email,role,active,created_at,last_login"

func scanUser(scan func(...interface{}) error) (User, error) {
	var u User
	var lastLogin sql.NullString
	err := scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Active, &u.CreatedAt, &lastLogin)
	u.LastLogin = sp(lastLogin)
	return u, err
}

func handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	activeOnly := r.URL.Query().Get("active")
	q := r.URL.Query().Get("q")

	where := " WHERE 1=1"
	args := []interface{}{}
	if activeOnly == "true" {
		where += " AND active = 1"
	}
	if q != "" {
		where += " AND (name LIKE ? OR email LIKE ?)"
		like := "%" + q + "%"
		args = append(args, like, like)
	}

	var total int
	db.QueryRow("SELECT COUNT(*) FROM users"+where, args...).Scan(&total)

	rows, err := db.Query("SELECT "+userCols+" FROM users"+where+" ORDER BY email LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var items []User
	for rows.Next() {
		u, _ := scanUser(rows.Scan)
		items = append(items, u)
	}
	if items == nil { items = []User{} }
	jsonRespMeta(w, items, total, page, limit)
}

func handleGetUser(w http.ResponseWriter, r *http.Request, id string) {
	u, err := scanUser(db.QueryRow("SELECT "+userCols+" FROM users WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, u)
}

func handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }

	if body.Role == "" { body.Role = "user" }

	v := &ValidationErrors{}
	requireField(v, "email", body.Email)
	validateEmail(v, "email", body.Email)
	validateEnum(v, "role", body.Role, validRoles)
	if len(body.Password) < 8 {
		v.Add("password", "must be at least 8 characters")
	}
	if v.HasErrors() { jsonValidationErr(w, v); return }

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	res, err := db.Exec("INSERT INTO users (name,email,password_hash,role) VALUES (?,?,?,?)",
		body.Name, body.Email, string(hash), body.Role)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			jsonErr(w, "email already in use", 409)
			return
		}
		jsonErr(w, err.Error(), 500)
		return
	}

	id, _ := res.LastInsertId()
	u, _ := scanUser(db.QueryRow("SELECT "+userCols+" FROM users WHERE id=?", id).Scan)
	logAudit(r, "create", "users", u.Email, "Created user "+u.Email+" ("+u.Role+")")
	w.WriteHeader(201)
	jsonResp(w, u)
}

func handleUpdateUser(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := scanUser(db.QueryRow("SELECT "+userCols+" FROM users WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }

	var body struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
		Role     *string `json:"role"`
		Active   *int    `json:"active"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }

	v := &ValidationErrors{}
	if body.Name != nil { existing.Name = *body.Name }
	if body.Email != nil {
		validateEmail(v, "email", *body.Email)
		existing.Email = *body.Email
	}
	if body.Role != nil {
		validateEnum(v, "role", *body.Role, validRoles)
		existing.Role = *body.Role
	}
	if body.Active != nil { existing.Active = *body.Active }
	if body.Password != nil && len(*body.Password) < 8 {
		v.Add("password", "must be at least 8 characters")
	}
	if v.HasErrors() { jsonValidationErr(w, v); return }

	_, err = db.Exec("UPDATE users SET name=?,email=?,role=?,active=? WHERE id=?",
		existing.Name, existing.Email, existing.Role, existing.Active, id)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			jsonErr(w, "email already in use", 409)
			return
		}
		jsonErr(w, err.Error(), 500)
		return
	}

	if body.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*body.Password), bcrypt.DefaultCost)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		db.Exec("UPDATE users SET password_hash=? WHERE id=?", string(hash), id)
		// Password change invalidates other sessions
		db.Exec("DELETE FROM sessions WHERE user_id=?", id)
	}
	if existing.Active == 0 {
		db.Exec("DELETE FROM sessions WHERE user_id=?", id)
	}

	logAudit(r, "update", "users", existing.Email, "Updated user "+existing.Email)
	jsonResp(w, existing)
}

// handleDeleteUser deactivates the account rather than removing the row
// so the audit trail keeps its author.
func handleDeleteUser(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := scanUser(db.QueryRow("SELECT "+userCols+" FROM users WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }

	if current, ok := r.Context().Value(ctxUserKey).(User); ok && current.ID == existing.ID {
		jsonErr(w, "cannot deactivate your own account", 409)
		return
	}

	if existing.Role == "admin" {
		var admins int
		db.QueryRow("SELECT COUNT(*) FROM users WHERE role='admin' AND active=1").Scan(&admins)
		if admins <= 1 { jsonErr(w, "cannot deactivate the last admin", 409); return }
	}

	db.Exec("UPDATE users SET active=0 WHERE id=?", id)
	db.Exec("DELETE FROM sessions WHERE user_id=?", id)

	logAudit(r, "deactivate", "users", existing.Email, "Deactivated user "+existing.Email)
	jsonResp(w, map[string]string{"status": "deactivated"})
}
