package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const budgetCols = "id,customer_id,status,COALESCE(valid_until,''),total,COALESCE(notes,''),created_at,updated_at"

func scanBudget(scan func(...interface{}) error) (Budget, error) {
	var b Budget
	err := scan(&b.ID, &b.CustomerID, &b.Status, &b.ValidUntil, &b.Total, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func handleListBudgets(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	status := r.URL.Query().Get("status")
	customerID := r.URL.Query().Get("customer_id")
	q := r.URL.Query().Get("q")

	where := " WHERE 1=1"
	args := []interface{}{}
	if status != "" {
		where += " AND status = ?"
		args = append(args, status)
	}
	if customerID != "" {
		where += " AND customer_id = ?"
		args = append(args, customerID)
	}
	if q != "" {
		where += " AND (id LIKE ? OR notes LIKE ?)"
		like := "%" + q + "%"
		args = append(args, like, like)
	}

	var total int
	db.QueryRow("SELECT COUNT(*) FROM budgets"+where, args...).Scan(&total)

	rows, err := db.Query("SELECT "+budgetCols+" FROM budgets"+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var items []Budget
	for rows.Next() {
		b, _ := scanBudget(rows.Scan)
		items = append(items, b)
	}
	if items == nil { items = []Budget{} }
	jsonRespMeta(w, items, total, page, limit)
}

func handleGetBudget(w http.ResponseWriter, r *http.Request, id string) {
	b, err := scanBudget(db.QueryRow("SELECT "+budgetCols+" FROM budgets WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }
	b.Items = loadLineItems("budget_items", "budget_id", b.ID)
	jsonResp(w, b)
}

func handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var b Budget
	if err := decodeBody(r, &b); err != nil { jsonErr(w, "invalid body", 400); return }

	if b.Status == "" { b.Status = "PENDING" }

	v := &ValidationErrors{}
	requireField(v, "customer_id", b.CustomerID)
	validateEnum(v, "status", b.Status, validBudgetStatuses)
	validateLineItems(v, "items", b.Items)
	if b.CustomerID != "" && !customerExists(b.CustomerID) {
		v.Add("customer_id", "customer does not exist")
	}
	if v.HasErrors() { jsonValidationErr(w, v); return }

	b.ID = nextID("BDG", "budgets", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	if b.ValidUntil == "" {
		b.ValidUntil = time.Now().AddDate(0, 0, 15).Format("2006-01-02")
	}
	b.Total = 0
	for i := range b.Items {
		b.Items[i].Total = lineTotal(b.Items[i])
		b.Total += b.Items[i].Total
	}

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	_, err = tx.Exec("INSERT INTO budgets (id,customer_id,status,valid_until,total,notes,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)",
		b.ID, b.CustomerID, b.Status, b.ValidUntil, b.Total, b.Notes, now, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	for _, it := range b.Items {
		_, err = tx.Exec("INSERT INTO budget_items (budget_id,product_id,service_id,description,qty,unit_price,discount,total) VALUES (?,?,?,?,?,?,?,?)",
			b.ID, it.ProductID, it.ServiceID, it.Description, it.Qty, it.UnitPrice, it.Discount, it.Total)
		if err != nil { jsonErr(w, err.Error(), 500); return }
	}

	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	b.CreatedAt, b.UpdatedAt = now, now
	b.Items = loadLineItems("budget_items", "budget_id", b.ID)
	logAudit(r, "create", "budgets", b.ID, fmt.Sprintf("Created budget of %.2f", b.Total))
	w.WriteHeader(201)
	jsonResp(w, b)
}

func handleUpdateBudget(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := scanBudget(db.QueryRow("SELECT "+budgetCols+" FROM budgets WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }
	if existing.Status == "CONVERTED" { jsonErr(w, "converted budgets cannot be changed", 409); return }

	var body struct {
		Status     *string    `json:"status"`
		ValidUntil *string    `json:"valid_until"`
		Notes      *string    `json:"notes"`
		Items      []LineItem `json:"items"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }

	v := &ValidationErrors{}
	if body.Status != nil {
		validateEnum(v, "status", *body.Status, validBudgetStatuses)
		if *body.Status == "CONVERTED" {
			jsonErr(w, "use the convert endpoint to convert a budget", 400)
			return
		}
		existing.Status = *body.Status
	}
	if body.ValidUntil != nil { existing.ValidUntil = *body.ValidUntil }
	if body.Notes != nil { existing.Notes = *body.Notes }
	if v.HasErrors() { jsonValidationErr(w, v); return }

	now := time.Now().Format("2006-01-02 15:04:05")

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	if body.Items != nil {
		tx.Exec("DELETE FROM budget_items WHERE budget_id=?", id)
		existing.Total = 0
		for _, it := range body.Items {
			it.Total = lineTotal(it)
			existing.Total += it.Total
			_, err = tx.Exec("INSERT INTO budget_items (budget_id,product_id,service_id,description,qty,unit_price,discount,total) VALUES (?,?,?,?,?,?,?,?)",
				id, it.ProductID, it.ServiceID, it.Description, it.Qty, it.UnitPrice, it.Discount, it.Total)
			if err != nil { jsonErr(w, err.Error(), 500); return }
		}
	}

	_, err = tx.Exec("UPDATE budgets SET status=?,valid_until=?,total=?,notes=?,updated_at=? WHERE id=?",
		existing.Status, existing.ValidUntil, existing.Total, existing.Notes, now, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	existing.UpdatedAt = now
	existing.Items = loadLineItems("budget_items", "budget_id", id)
	logAudit(r, "update", "budgets", id, "Updated budget ("+existing.Status+")")
	jsonResp(w, existing)
}

func handleDeleteBudget(w http.ResponseWriter, r *http.Request, id string) {
	var status string
	err := db.QueryRow("SELECT status FROM budgets WHERE id=?", id).Scan(&status)
	if err != nil { jsonErr(w, "not found", 404); return }
	if status == "CONVERTED" { jsonErr(w, "converted budgets cannot be deleted", 409); return }

	_, err = db.Exec("DELETE FROM budgets WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(r, "delete", "budgets", id, "Deleted budget "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}

// handleConvertBudget turns an approved or pending budget into a sale.
// Budget lines become sale lines, product stock is decremented, and
// the budget is marked CONVERTED, all in one transaction.
func handleConvertBudget(w http.ResponseWriter, r *http.Request, id string) {
	b, err := scanBudget(db.QueryRow("SELECT "+budgetCols+" FROM budgets WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }

	switch b.Status {
	case "CONVERTED":
		jsonErr(w, "budget already converted", 409)
		return
	case "REJECTED", "EXPIRED":
		jsonErr(w, "budget is "+strings.ToLower(b.Status), 409)
		return
	}

	var body struct {
		PaymentMethod string `json:"payment_method"`
		Paid          int    `json:"paid"`
		Seller        string `json:"seller"`
	}
	decodeBody(r, &body)
	if body.PaymentMethod == "" { body.PaymentMethod = "CASH" }

	v := &ValidationErrors{}
	validateEnum(v, "payment_method", body.PaymentMethod, validPaymentMethods)
	if v.HasErrors() { jsonValidationErr(w, v); return }

	items := loadLineItems("budget_items", "budget_id", id)
	saleID := nextID("SAL", "sales", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	// Generate ids before the transaction starts; nextID queries the pool
	finID := ""
	if body.Paid == 1 && b.Total > 0 {
		finID = nextID("FIN", "financial_records", 4)
	}

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	_, err = tx.Exec("INSERT INTO sales (id,customer_id,seller,payment_method,paid,total,notes,created_at) VALUES (?,?,?,?,?,?,?,?)",
		saleID, b.CustomerID, body.Seller, body.PaymentMethod, body.Paid, b.Total, "Converted from budget "+id, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	for _, it := range items {
		_, err = tx.Exec("INSERT INTO sale_items (sale_id,product_id,service_id,description,qty,unit_price,discount,total) VALUES (?,?,?,?,?,?,?,?)",
			saleID, it.ProductID, it.ServiceID, it.Description, it.Qty, it.UnitPrice, it.Discount, it.Total)
		if err != nil { jsonErr(w, err.Error(), 500); return }

		if it.ProductID == "" {
			continue
		}
		_, err = tx.Exec("UPDATE products SET stock_qty = stock_qty - ?, updated_at = ? WHERE id = ?",
			it.Qty, now, it.ProductID)
		if err != nil {
			if strings.Contains(err.Error(), "constraint") {
				jsonErr(w, "insufficient stock for product "+it.ProductID, 409)
				return
			}
			jsonErr(w, err.Error(), 500)
			return
		}
	}

	if body.Paid == 1 && b.Total > 0 {
		_, err = tx.Exec(`INSERT INTO financial_records (id,type,category,description,amount,payment_method,paid,due_date,paid_at,customer_id,sale_id,created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			finID, "REVENUE", "sales", "Sale "+saleID+" (budget "+id+")", b.Total, body.PaymentMethod, 1, now[:10], now, b.CustomerID, saleID, now)
		if err != nil { jsonErr(w, err.Error(), 500); return }
	}

	_, err = tx.Exec("UPDATE budgets SET status='CONVERTED',updated_at=? WHERE id=?", now, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	s, err := scanSale(db.QueryRow("SELECT "+saleCols+" FROM sales WHERE id=?", saleID).Scan)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	s.Items = loadLineItems("sale_items", "sale_id", saleID)

	logAudit(r, "convert", "budgets", id, "Converted budget "+id+" to sale "+saleID)
	w.WriteHeader(201)
	jsonResp(w, s)
}
