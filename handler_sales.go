package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const saleCols = "id,COALESCE(customer_id,''),COALESCE(seller,''),payment_method,paid,total,COALESCE(notes,''),created_at"

func scanSale(scan func(...interface{}) error) (Sale, error) {
	var s Sale
	err := scan(&s.ID, &s.CustomerID, &s.Seller, &s.PaymentMethod, &s.Paid, &s.Total, &s.Notes, &s.CreatedAt)
	return s, err
}

func handleListSales(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	customerID := r.URL.Query().Get("customer_id")
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	where := " WHERE 1=1"
	args := []interface{}{}
	if customerID != "" {
		where += " AND customer_id = ?"
		args = append(args, customerID)
	}
	if from != "" {
		where += " AND created_at >= ?"
		args = append(args, from)
	}
	if to != "" {
		where += " AND created_at <= ?"
		args = append(args, to+" 23:59:59")
	}

	var total int
	db.QueryRow("SELECT COUNT(*) FROM sales"+where, args...).Scan(&total)

	rows, err := db.Query("SELECT "+saleCols+" FROM sales"+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var items []Sale
	for rows.Next() {
		s, _ := scanSale(rows.Scan)
		items = append(items, s)
	}
	if items == nil { items = []Sale{} }
	jsonRespMeta(w, items, total, page, limit)
}

func handleGetSale(w http.ResponseWriter, r *http.Request, id string) {
	s, err := scanSale(db.QueryRow("SELECT "+saleCols+" FROM sales WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }
	s.Items = loadLineItems("sale_items", "sale_id", s.ID)
	jsonResp(w, s)
}

// handleCreateSale records a sale and decrements stock for every
// product line in a single transaction. Insufficient stock on any
// line aborts the whole sale.
func handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var s Sale
	if err := decodeBody(r, &s); err != nil { jsonErr(w, "invalid body", 400); return }

	if s.PaymentMethod == "" { s.PaymentMethod = "CASH" }

	v := &ValidationErrors{}
	validateEnum(v, "payment_method", s.PaymentMethod, validPaymentMethods)
	validateLineItems(v, "items", s.Items)
	if s.CustomerID != "" && !customerExists(s.CustomerID) {
		v.Add("customer_id", "customer does not exist")
	}
	if v.HasErrors() { jsonValidationErr(w, v); return }

	s.ID = nextID("SAL", "sales", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	s.Total = 0
	for i := range s.Items {
		s.Items[i].Total = lineTotal(s.Items[i])
		s.Total += s.Items[i].Total
	}
	// Generate ids before the transaction starts; nextID queries the pool
	finID := ""
	if s.Paid == 1 && s.Total > 0 {
		finID = nextID("FIN", "financial_records", 4)
	}

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	_, err = tx.Exec("INSERT INTO sales (id,customer_id,seller,payment_method,paid,total,notes,created_at) VALUES (?,?,?,?,?,?,?,?)",
		s.ID, s.CustomerID, s.Seller, s.PaymentMethod, s.Paid, s.Total, s.Notes, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	for _, it := range s.Items {
		_, err = tx.Exec("INSERT INTO sale_items (sale_id,product_id,service_id,description,qty,unit_price,discount,total) VALUES (?,?,?,?,?,?,?,?)",
			s.ID, it.ProductID, it.ServiceID, it.Description, it.Qty, it.UnitPrice, it.Discount, it.Total)
		if err != nil { jsonErr(w, err.Error(), 500); return }

		if it.ProductID == "" {
			continue
		}
		res, err := tx.Exec("UPDATE products SET stock_qty = stock_qty - ?, updated_at = ? WHERE id = ?",
			it.Qty, now, it.ProductID)
		if err != nil {
			// CHECK(stock_qty >= 0) fires when stock would go negative
			if strings.Contains(err.Error(), "constraint") {
				jsonErr(w, "insufficient stock for product "+it.ProductID, 409)
				return
			}
			jsonErr(w, err.Error(), 500)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			jsonErr(w, "unknown product "+it.ProductID, 400)
			return
		}
	}

	// Paid sales generate a revenue entry immediately
	if s.Paid == 1 && s.Total > 0 {
		_, err = tx.Exec(`INSERT INTO financial_records (id,type,category,description,amount,payment_method,paid,due_date,paid_at,customer_id,sale_id,created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			finID, "REVENUE", "sales", "Sale "+s.ID, s.Total, s.PaymentMethod, 1, now[:10], now, s.CustomerID, s.ID, now)
		if err != nil { jsonErr(w, err.Error(), 500); return }
	}

	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	s.CreatedAt = now
	s.Items = loadLineItems("sale_items", "sale_id", s.ID)
	logAudit(r, "create", "sales", s.ID, fmt.Sprintf("Sale of %.2f (%s)", s.Total, s.PaymentMethod))
	w.WriteHeader(201)
	jsonResp(w, s)
}

// handleCancelSale undoes a sale: every product line puts its quantity
// back in stock, linked financial records go away, and the sale and
// its lines are removed. All of it commits or none of it does.
func handleCancelSale(w http.ResponseWriter, r *http.Request, id string) {
	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	var total float64
	err = tx.QueryRow("SELECT total FROM sales WHERE id=?", id).Scan(&total)
	if err != nil { jsonErr(w, "not found", 404); return }

	rows, err := tx.Query("SELECT COALESCE(product_id,''), qty FROM sale_items WHERE sale_id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	type line struct {
		productID string
		qty       int
	}
	var lines []line
	for rows.Next() {
		var l line
		rows.Scan(&l.productID, &l.qty)
		lines = append(lines, l)
	}
	rows.Close()

	now := time.Now().Format("2006-01-02 15:04:05")
	for _, l := range lines {
		if l.productID == "" {
			continue
		}
		res, err := tx.Exec("UPDATE products SET stock_qty = stock_qty + ?, updated_at = ? WHERE id = ?",
			l.qty, now, l.productID)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		if n, _ := res.RowsAffected(); n == 0 {
			jsonErr(w, "cannot restore stock: product "+l.productID+" no longer exists", 409)
			return
		}
	}

	if _, err := tx.Exec("DELETE FROM financial_records WHERE sale_id=?", id); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if _, err := tx.Exec("DELETE FROM sale_items WHERE sale_id=?", id); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if _, err := tx.Exec("DELETE FROM sales WHERE id=?", id); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(r, "cancel", "sales", id, fmt.Sprintf("Cancelled sale %s (%.2f)", id, total))
	jsonResp(w, map[string]string{"status": "cancelled"})
}
