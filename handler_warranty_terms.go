package main

import (
	"net/http"
	"time"
)

const warrantyCols = "id,name,duration_days,COALESCE(terms,''),active,created_at"

func scanWarrantyTerm(scan func(...interface{}) error) (WarrantyTerm, error) {
	var t WarrantyTerm
	err := scan(&t.ID, &t.Name, &t.DurationDays, &t.Terms, &t.Active, &t.CreatedAt)
	return t, err
}

func handleListWarrantyTerms(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	q := r.URL.Query().Get("q")

	where := ""
	args := []interface{}{}
	if q != "" {
		where = " WHERE name LIKE ? OR terms LIKE ?"
		like := "%" + q + "%"
		args = append(args, like, like)
	}

	var total int
	db.QueryRow("SELECT COUNT(*) FROM warranty_terms"+where, args...).Scan(&total)

	rows, err := db.Query("SELECT "+warrantyCols+" FROM warranty_terms"+where+" ORDER BY name LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var items []WarrantyTerm
	for rows.Next() {
		t, _ := scanWarrantyTerm(rows.Scan)
		items = append(items, t)
	}
	if items == nil { items = []WarrantyTerm{} }
	jsonRespMeta(w, items, total, page, limit)
}

func handleGetWarrantyTerm(w http.ResponseWriter, r *http.Request, id string) {
	t, err := scanWarrantyTerm(db.QueryRow("SELECT "+warrantyCols+" FROM warranty_terms WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, t)
}

func handleCreateWarrantyTerm(w http.ResponseWriter, r *http.Request) {
	var t WarrantyTerm
	t.Active = 1
	if err := decodeBody(r, &t); err != nil { jsonErr(w, "invalid body", 400); return }

	v := &ValidationErrors{}
	requireField(v, "name", t.Name)
	validateNonNegative(v, "duration_days", float64(t.DurationDays))
	if v.HasErrors() { jsonValidationErr(w, v); return }

	t.ID = nextID("WT", "warranty_terms", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := db.Exec("INSERT INTO warranty_terms (id,name,duration_days,terms,active,created_at) VALUES (?,?,?,?,?,?)",
		t.ID, t.Name, t.DurationDays, t.Terms, t.Active, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	t.CreatedAt = now
	logAudit(r, "create", "warranty_terms", t.ID, "Created warranty term "+t.Name)
	w.WriteHeader(201)
	jsonResp(w, t)
}

func handleUpdateWarrantyTerm(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := scanWarrantyTerm(db.QueryRow("SELECT "+warrantyCols+" FROM warranty_terms WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }

	var body struct {
		Name         *string `json:"name"`
		DurationDays *int    `json:"duration_days"`
		Terms        *string `json:"terms"`
		Active       *int    `json:"active"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }

	if body.Name != nil { existing.Name = *body.Name }
	if body.DurationDays != nil { existing.DurationDays = *body.DurationDays }
	if body.Terms != nil { existing.Terms = *body.Terms }
	if body.Active != nil { existing.Active = *body.Active }

	v := &ValidationErrors{}
	requireField(v, "name", existing.Name)
	validateNonNegative(v, "duration_days", float64(existing.DurationDays))
	if v.HasErrors() { jsonValidationErr(w, v); return }

	_, err = db.Exec("UPDATE warranty_terms SET name=?,duration_days=?,terms=?,active=? WHERE id=?",
		existing.Name, existing.DurationDays, existing.Terms, existing.Active, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(r, "update", "warranty_terms", id, "Updated warranty term "+existing.Name)
	jsonResp(w, existing)
}

func handleDeleteWarrantyTerm(w http.ResponseWriter, r *http.Request, id string) {
	var refs int
	db.QueryRow("SELECT COUNT(*) FROM service_orders WHERE warranty_term_id=?", id).Scan(&refs)
	if refs > 0 { jsonErr(w, "warranty term in use", 409); return }

	res, err := db.Exec("DELETE FROM warranty_terms WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }

	logAudit(r, "delete", "warranty_terms", id, "Deleted warranty term "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}
