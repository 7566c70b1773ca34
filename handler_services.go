package main

import (
	"net/http"
	"time"
)

const serviceCols = "id,name,COALESCE(description,''),price,duration_minutes,active,created_at,updated_at"

func scanService(scan func(...interface{}) error) (Service, error) {
	var s Service
	err := scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.DurationMinutes, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func handleListServices(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	q := r.URL.Query().Get("q")
	activeOnly := r.URL.Query().Get("active")

	where := " WHERE 1=1"
	args := []interface{}{}
	if q != "" {
		where += " AND (name LIKE ? OR description LIKE ?)"
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	if activeOnly == "true" {
		where += " AND active = 1"
	}

	var total int
	db.QueryRow("SELECT COUNT(*) FROM services"+where, args...).Scan(&total)

	rows, err := db.Query("SELECT "+serviceCols+" FROM services"+where+" ORDER BY name LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var items []Service
	for rows.Next() {
		s, _ := scanService(rows.Scan)
		items = append(items, s)
	}
	if items == nil { items = []Service{} }
	jsonRespMeta(w, items, total, page, limit)
}

func handleGetService(w http.ResponseWriter, r *http.Request, id string) {
	s, err := scanService(db.QueryRow("SELECT "+serviceCols+" FROM services WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, s)
}

func handleCreateService(w http.ResponseWriter, r *http.Request) {
	var s Service
	s.Active = 1
	if err := decodeBody(r, &s); err != nil { jsonErr(w, "invalid body", 400); return }

	v := &ValidationErrors{}
	requireField(v, "name", s.Name)
	validateNonNegative(v, "price", s.Price)
	validateNonNegative(v, "duration_minutes", float64(s.DurationMinutes))
	if v.HasErrors() { jsonValidationErr(w, v); return }

	s.ID = nextID("SVC", "services", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := db.Exec(`INSERT INTO services (id,name,description,price,duration_minutes,active,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		s.ID, s.Name, s.Description, s.Price, s.DurationMinutes, s.Active, now, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	s.CreatedAt, s.UpdatedAt = now, now
	logAudit(r, "create", "services", s.ID, "Created service "+s.Name)
	w.WriteHeader(201)
	jsonResp(w, s)
}

func handleUpdateService(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := scanService(db.QueryRow("SELECT "+serviceCols+" FROM services WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }

	var body struct {
		Name            *string  `json:"name"`
		Description     *string  `json:"description"`
		Price           *float64 `json:"price"`
		DurationMinutes *int     `json:"duration_minutes"`
		Active          *int     `json:"active"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }

	if body.Name != nil { existing.Name = *body.Name }
	if body.Description != nil { existing.Description = *body.Description }
	if body.Price != nil { existing.Price = *body.Price }
	if body.DurationMinutes != nil { existing.DurationMinutes = *body.DurationMinutes }
	if body.Active != nil { existing.Active = *body.Active }

	v := &ValidationErrors{}
	requireField(v, "name", existing.Name)
	validateNonNegative(v, "price", existing.Price)
	validateNonNegative(v, "duration_minutes", float64(existing.DurationMinutes))
	if v.HasErrors() { jsonValidationErr(w, v); return }

	now := time.Now().Format("2006-01-02 15:04:05")
	_, err = db.Exec(`UPDATE services SET name=?,description=?,price=?,duration_minutes=?,active=?,updated_at=? WHERE id=?`,
		existing.Name, existing.Description, existing.Price, existing.DurationMinutes, existing.Active, now, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	existing.UpdatedAt = now
	logAudit(r, "update", "services", id, "Updated service "+existing.Name)
	jsonResp(w, existing)
}

func handleDeleteService(w http.ResponseWriter, r *http.Request, id string) {
	var refs int
	db.QueryRow("SELECT (SELECT COUNT(*) FROM sale_items WHERE service_id=?) + (SELECT COUNT(*) FROM service_order_items WHERE service_id=?) + (SELECT COUNT(*) FROM budget_items WHERE service_id=?)",
		id, id, id).Scan(&refs)
	if refs > 0 {
		now := time.Now().Format("2006-01-02 15:04:05")
		res, err := db.Exec("UPDATE services SET active=0,updated_at=? WHERE id=?", now, id)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
		logAudit(r, "deactivate", "services", id, "Deactivated service "+id)
		jsonResp(w, map[string]string{"status": "deactivated"})
		return
	}

	res, err := db.Exec("DELETE FROM services WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }

	logAudit(r, "delete", "services", id, "Deleted service "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}
