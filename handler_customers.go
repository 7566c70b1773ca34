package main

import (
	"net/http"
	"time"
)

const customerCols = "id,name,COALESCE(email,''),COALESCE(phone,''),COALESCE(document,''),COALESCE(address,''),COALESCE(city,''),COALESCE(state,''),COALESCE(zip_code,''),COALESCE(notes,''),created_at,updated_at"

func scanCustomer(scan func(...interface{}) error) (Customer, error) {
	var c Customer
	err := scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Document, &c.Address, &c.City, &c.State, &c.ZipCode, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func handleListCustomers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	q := r.URL.Query().Get("q")

	where := ""
	args := []interface{}{}
	if q != "" {
		where = " WHERE name LIKE ? OR email LIKE ? OR phone LIKE ? OR document LIKE ?"
		like := "%" + q + "%"
		args = append(args, like, like, like, like)
	}

	var total int
	db.QueryRow("SELECT COUNT(*) FROM customers"+where, args...).Scan(&total)

	rows, err := db.Query("SELECT "+customerCols+" FROM customers"+where+" ORDER BY name LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var items []Customer
	for rows.Next() {
		c, _ := scanCustomer(rows.Scan)
		items = append(items, c)
	}
	if items == nil { items = []Customer{} }
	jsonRespMeta(w, items, total, page, limit)
}

func handleGetCustomer(w http.ResponseWriter, r *http.Request, id string) {
	c, err := scanCustomer(db.QueryRow("SELECT "+customerCols+" FROM customers WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, c)
}

func handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c Customer
	if err := decodeBody(r, &c); err != nil { jsonErr(w, "invalid body", 400); return }

	v := &ValidationErrors{}
	requireField(v, "name", c.Name)
	validateEmail(v, "email", c.Email)
	if v.HasErrors() { jsonValidationErr(w, v); return }

	c.ID = nextID("CUS", "customers", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := db.Exec(`INSERT INTO customers (id,name,email,phone,document,address,city,state,zip_code,notes,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Name, c.Email, c.Phone, c.Document, c.Address, c.City, c.State, c.ZipCode, c.Notes, now, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	c.CreatedAt, c.UpdatedAt = now, now
	logAudit(r, "create", "customers", c.ID, "Created customer "+c.Name)
	w.WriteHeader(201)
	jsonResp(w, c)
}

func handleUpdateCustomer(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := scanCustomer(db.QueryRow("SELECT "+customerCols+" FROM customers WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }

	// Sparse update: absent fields keep their current value
	var body struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Phone    *string `json:"phone"`
		Document *string `json:"document"`
		Address  *string `json:"address"`
		City     *string `json:"city"`
		State    *string `json:"state"`
		ZipCode  *string `json:"zip_code"`
		Notes    *string `json:"notes"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }

	if body.Name != nil { existing.Name = *body.Name }
	if body.Email != nil { existing.Email = *body.Email }
	if body.Phone != nil { existing.Phone = *body.Phone }
	if body.Document != nil { existing.Document = *body.Document }
	if body.Address != nil { existing.Address = *body.Address }
	if body.City != nil { existing.City = *body.City }
	if body.State != nil { existing.State = *body.State }
	if body.ZipCode != nil { existing.ZipCode = *body.ZipCode }
	if body.Notes != nil { existing.Notes = *body.Notes }

	v := &ValidationErrors{}
	requireField(v, "name", existing.Name)
	validateEmail(v, "email", existing.Email)
	if v.HasErrors() { jsonValidationErr(w, v); return }

	now := time.Now().Format("2006-01-02 15:04:05")
	_, err = db.Exec(`UPDATE customers SET name=?,email=?,phone=?,document=?,address=?,city=?,state=?,zip_code=?,notes=?,updated_at=? WHERE id=?`,
		existing.Name, existing.Email, existing.Phone, existing.Document, existing.Address, existing.City, existing.State, existing.ZipCode, existing.Notes, now, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	existing.UpdatedAt = now
	logAudit(r, "update", "customers", id, "Updated customer "+existing.Name)
	jsonResp(w, existing)
}

func handleDeleteCustomer(w http.ResponseWriter, r *http.Request, id string) {
	// Customers referenced by orders or budgets cannot be removed
	var refs int
	db.QueryRow("SELECT (SELECT COUNT(*) FROM service_orders WHERE customer_id=?) + (SELECT COUNT(*) FROM budgets WHERE customer_id=?) + (SELECT COUNT(*) FROM sales WHERE customer_id=?)",
		id, id, id).Scan(&refs)
	if refs > 0 { jsonErr(w, "customer has linked records", 409); return }

	res, err := db.Exec("DELETE FROM customers WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }

	logAudit(r, "delete", "customers", id, "Deleted customer "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}
