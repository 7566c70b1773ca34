package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"
)

const finCols = "id,type,COALESCE(category,''),COALESCE(description,''),amount,payment_method,paid,COALESCE(due_date,''),paid_at,COALESCE(customer_id,''),COALESCE(sale_id,''),COALESCE(service_order_id,''),created_at"

func scanFinancialRecord(scan func(...interface{}) error) (FinancialRecord, error) {
	var f FinancialRecord
	var paidAt sql.NullString
	err := scan(&f.ID, &f.Type, &f.Category, &f.Description, &f.Amount, &f.PaymentMethod, &f.Paid, &f.DueDate, &paidAt, &f.CustomerID, &f.SaleID, &f.ServiceOrderID, &f.CreatedAt)
	f.PaidAt = sp(paidAt)
	return f, err
}

func handleListFinancialRecords(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	recType := r.URL.Query().Get("type")
	paid := r.URL.Query().Get("paid")
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	where := " WHERE 1=1"
	args := []interface{}{}
	if recType != "" {
		where += " AND type = ?"
		args = append(args, recType)
	}
	if paid == "true" {
		where += " AND paid = 1"
	} else if paid == "false" {
		where += " AND paid = 0"
	}
	if from != "" {
		where += " AND due_date >= ?"
		args = append(args, from)
	}
	if to != "" {
		where += " AND due_date <= ?"
		args = append(args, to)
	}
	if q := r.URL.Query().Get("q"); q != "" {
		where += " AND (category LIKE ? OR description LIKE ?)"
		like := "%" + q + "%"
		args = append(args, like, like)
	}

	var total int
	db.QueryRow("SELECT COUNT(*) FROM financial_records"+where, args...).Scan(&total)

	rows, err := db.Query("SELECT "+finCols+" FROM financial_records"+where+" ORDER BY due_date DESC, created_at DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var items []FinancialRecord
	for rows.Next() {
		f, _ := scanFinancialRecord(rows.Scan)
		items = append(items, f)
	}
	if items == nil { items = []FinancialRecord{} }
	jsonRespMeta(w, items, total, page, limit)
}

func handleGetFinancialRecord(w http.ResponseWriter, r *http.Request, id string) {
	f, err := scanFinancialRecord(db.QueryRow("SELECT "+finCols+" FROM financial_records WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, f)
}

func handleCreateFinancialRecord(w http.ResponseWriter, r *http.Request) {
	var f FinancialRecord
	if err := decodeBody(r, &f); err != nil { jsonErr(w, "invalid body", 400); return }

	if f.PaymentMethod == "" { f.PaymentMethod = "CASH" }

	v := &ValidationErrors{}
	requireField(v, "type", f.Type)
	validateEnum(v, "type", f.Type, validRecordTypes)
	validateEnum(v, "payment_method", f.PaymentMethod, validPaymentMethods)
	validatePositive(v, "amount", f.Amount)
	if v.HasErrors() { jsonValidationErr(w, v); return }

	f.ID = nextID("FIN", "financial_records", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	if f.DueDate == "" {
		f.DueDate = now[:10]
	}
	if f.Paid == 1 && f.PaidAt == nil {
		f.PaidAt = &now
	}

	_, err := db.Exec(`INSERT INTO financial_records (id,type,category,description,amount,payment_method,paid,due_date,paid_at,customer_id,sale_id,service_order_id,created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		f.ID, f.Type, f.Category, f.Description, f.Amount, f.PaymentMethod, f.Paid, f.DueDate, ns(f.PaidAt), f.CustomerID, f.SaleID, f.ServiceOrderID, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	f.CreatedAt = now
	logAudit(r, "create", "financial_records", f.ID, fmt.Sprintf("%s of %.2f", f.Type, f.Amount))
	w.WriteHeader(201)
	jsonResp(w, f)
}

func handleUpdateFinancialRecord(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := scanFinancialRecord(db.QueryRow("SELECT "+finCols+" FROM financial_records WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }

	var body struct {
		Type          *string  `json:"type"`
		Category      *string  `json:"category"`
		Description   *string  `json:"description"`
		Amount        *float64 `json:"amount"`
		PaymentMethod *string  `json:"payment_method"`
		Paid          *int     `json:"paid"`
		DueDate       *string  `json:"due_date"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }

	if body.Type != nil { existing.Type = *body.Type }
	if body.Category != nil { existing.Category = *body.Category }
	if body.Description != nil { existing.Description = *body.Description }
	if body.Amount != nil { existing.Amount = *body.Amount }
	if body.PaymentMethod != nil { existing.PaymentMethod = *body.PaymentMethod }
	if body.DueDate != nil { existing.DueDate = *body.DueDate }

	now := time.Now().Format("2006-01-02 15:04:05")
	if body.Paid != nil && *body.Paid != existing.Paid {
		existing.Paid = *body.Paid
		if existing.Paid == 1 {
			existing.PaidAt = &now
		} else {
			existing.PaidAt = nil
		}
	}

	v := &ValidationErrors{}
	validateEnum(v, "type", existing.Type, validRecordTypes)
	validateEnum(v, "payment_method", existing.PaymentMethod, validPaymentMethods)
	validatePositive(v, "amount", existing.Amount)
	if v.HasErrors() { jsonValidationErr(w, v); return }

	_, err = db.Exec(`UPDATE financial_records SET type=?,category=?,description=?,amount=?,payment_method=?,paid=?,due_date=?,paid_at=? WHERE id=?`,
		existing.Type, existing.Category, existing.Description, existing.Amount, existing.PaymentMethod, existing.Paid, existing.DueDate, ns(existing.PaidAt), id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(r, "update", "financial_records", id, fmt.Sprintf("Updated %s record", existing.Type))
	jsonResp(w, existing)
}

func handleDeleteFinancialRecord(w http.ResponseWriter, r *http.Request, id string) {
	// Records generated by a sale are managed through the sale itself
	var saleID string
	err := db.QueryRow("SELECT COALESCE(sale_id,'') FROM financial_records WHERE id=?", id).Scan(&saleID)
	if err != nil { jsonErr(w, "not found", 404); return }
	if saleID != "" { jsonErr(w, "record is linked to sale "+saleID, 409); return }

	_, err = db.Exec("DELETE FROM financial_records WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(r, "delete", "financial_records", id, "Deleted financial record "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}
