package main

import (
	"database/sql"
	"net/http"
	"time"
)

const orderCols = "id,customer_id,status,priority,COALESCE(warranty_term_id,''),total,COALESCE(notes,''),created_at,updated_at,delivered_at"

func scanServiceOrder(scan func(...interface{}) error) (ServiceOrder, error) {
	var o ServiceOrder
	var delivered sql.NullString
	err := scan(&o.ID, &o.CustomerID, &o.Status, &o.Priority, &o.WarrantyTermID, &o.Total, &o.Notes, &o.CreatedAt, &o.UpdatedAt, &delivered)
	o.DeliveredAt = sp(delivered)
	return o, err
}

func loadOrderChildren(o *ServiceOrder) {
	rows, err := db.Query("SELECT id,service_order_id,device,COALESCE(serial_number,''),COALESCE(reported_issue,''),COALESCE(diagnosis,''),COALESCE(solution,'') FROM service_order_equipments WHERE service_order_id=? ORDER BY id", o.ID)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var e Equipment
			rows.Scan(&e.ID, &e.ServiceOrderID, &e.Device, &e.SerialNumber, &e.ReportedIssue, &e.Diagnosis, &e.Solution)
			o.Equipments = append(o.Equipments, e)
		}
	}
	o.Items = loadLineItems("service_order_items", "service_order_id", o.ID)
}

// loadLineItems reads the line rows of a sale, budget or service order.
func loadLineItems(table, parentCol, parentID string) []LineItem {
	rows, err := db.Query("SELECT id,"+parentCol+",COALESCE(product_id,''),COALESCE(service_id,''),COALESCE(description,''),qty,unit_price,discount,total FROM "+table+" WHERE "+parentCol+"=? ORDER BY id", parentID)
	if err != nil {
		return []LineItem{}
	}
	defer rows.Close()
	var items []LineItem
	for rows.Next() {
		var it LineItem
		rows.Scan(&it.ID, &it.ParentID, &it.ProductID, &it.ServiceID, &it.Description, &it.Qty, &it.UnitPrice, &it.Discount, &it.Total)
		items = append(items, it)
	}
	if items == nil { items = []LineItem{} }
	return items
}

func handleListServiceOrders(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	status := r.URL.Query().Get("status")
	customerID := r.URL.Query().Get("customer_id")
	priority := r.URL.Query().Get("priority")

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
	if priority != "" {
		where += " AND priority = ?"
		args = append(args, priority)
	}
	if q := r.URL.Query().Get("q"); q != "" {
		where += " AND (id LIKE ? OR notes LIKE ?)"
		like := "%" + q + "%"
		args = append(args, like, like)
	}

	var total int
	db.QueryRow("SELECT COUNT(*) FROM service_orders"+where, args...).Scan(&total)

	rows, err := db.Query("SELECT "+orderCols+" FROM service_orders"+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var items []ServiceOrder
	for rows.Next() {
		o, _ := scanServiceOrder(rows.Scan)
		items = append(items, o)
	}
	if items == nil { items = []ServiceOrder{} }
	jsonRespMeta(w, items, total, page, limit)
}

func handleGetServiceOrder(w http.ResponseWriter, r *http.Request, id string) {
	o, err := scanServiceOrder(db.QueryRow("SELECT "+orderCols+" FROM service_orders WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }
	loadOrderChildren(&o)
	jsonResp(w, o)
}

func handleCreateServiceOrder(w http.ResponseWriter, r *http.Request) {
	var o ServiceOrder
	if err := decodeBody(r, &o); err != nil { jsonErr(w, "invalid body", 400); return }

	if o.Status == "" { o.Status = "OPENED" }
	if o.Priority == "" { o.Priority = "NORMAL" }

	v := &ValidationErrors{}
	requireField(v, "customer_id", o.CustomerID)
	validateEnum(v, "status", o.Status, validOrderStatuses)
	validateEnum(v, "priority", o.Priority, validPriorities)
	if o.CustomerID != "" && !customerExists(o.CustomerID) {
		v.Add("customer_id", "customer does not exist")
	}
	if o.WarrantyTermID != "" {
		var n int
		db.QueryRow("SELECT COUNT(*) FROM warranty_terms WHERE id=?", o.WarrantyTermID).Scan(&n)
		if n == 0 { v.Add("warranty_term_id", "warranty term does not exist") }
	}
	if len(o.Equipments) == 0 {
		v.Add("equipments", "at least one equipment is required")
	}
	for _, e := range o.Equipments {
		if e.Device == "" {
			v.Add("equipments", "device is required")
			break
		}
	}
	if v.HasErrors() { jsonValidationErr(w, v); return }

	o.ID = nextID("OS", "service_orders", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	o.Total = 0
	for i := range o.Items {
		o.Items[i].Total = lineTotal(o.Items[i])
		o.Total += o.Items[i].Total
	}

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO service_orders (id,customer_id,status,priority,warranty_term_id,total,notes,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		o.ID, o.CustomerID, o.Status, o.Priority, o.WarrantyTermID, o.Total, o.Notes, now, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	for _, e := range o.Equipments {
		_, err = tx.Exec("INSERT INTO service_order_equipments (service_order_id,device,serial_number,reported_issue,diagnosis,solution) VALUES (?,?,?,?,?,?)",
			o.ID, e.Device, e.SerialNumber, e.ReportedIssue, e.Diagnosis, e.Solution)
		if err != nil { jsonErr(w, err.Error(), 500); return }
	}
	for _, it := range o.Items {
		_, err = tx.Exec("INSERT INTO service_order_items (service_order_id,product_id,service_id,description,qty,unit_price,discount,total) VALUES (?,?,?,?,?,?,?,?)",
			o.ID, it.ProductID, it.ServiceID, it.Description, it.Qty, it.UnitPrice, it.Discount, it.Total)
		if err != nil { jsonErr(w, err.Error(), 500); return }
	}

	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	o.CreatedAt, o.UpdatedAt = now, now
	loadOrderChildren(&o)
	logAudit(r, "create", "service_orders", o.ID, "Opened service order for "+o.CustomerID)
	w.WriteHeader(201)
	jsonResp(w, o)
}

func handleUpdateServiceOrder(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := scanServiceOrder(db.QueryRow("SELECT "+orderCols+" FROM service_orders WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }

	var body struct {
		Status         *string     `json:"status"`
		Priority       *string     `json:"priority"`
		WarrantyTermID *string     `json:"warranty_term_id"`
		Notes          *string     `json:"notes"`
		Equipments     []Equipment `json:"equipments"`
		Items          []LineItem  `json:"items"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }

	v := &ValidationErrors{}
	newStatus := existing.Status
	if body.Status != nil {
		newStatus = *body.Status
		validateEnum(v, "status", newStatus, validOrderStatuses)
		if !v.HasErrors() && !canTransition(existing.Status, newStatus) {
			jsonErr(w, "invalid status transition "+existing.Status+" -> "+newStatus, 409)
			return
		}
	}
	if body.Priority != nil {
		validateEnum(v, "priority", *body.Priority, validPriorities)
		existing.Priority = *body.Priority
	}
	if body.WarrantyTermID != nil { existing.WarrantyTermID = *body.WarrantyTermID }
	if body.Notes != nil { existing.Notes = *body.Notes }
	if v.HasErrors() { jsonValidationErr(w, v); return }

	now := time.Now().Format("2006-01-02 15:04:05")
	deliveredAt := existing.DeliveredAt
	if newStatus == "DELIVERED" && existing.Status != "DELIVERED" {
		deliveredAt = &now
	}
	existing.Status = newStatus

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	if body.Equipments != nil {
		tx.Exec("DELETE FROM service_order_equipments WHERE service_order_id=?", id)
		for _, e := range body.Equipments {
			_, err = tx.Exec("INSERT INTO service_order_equipments (service_order_id,device,serial_number,reported_issue,diagnosis,solution) VALUES (?,?,?,?,?,?)",
				id, e.Device, e.SerialNumber, e.ReportedIssue, e.Diagnosis, e.Solution)
			if err != nil { jsonErr(w, err.Error(), 500); return }
		}
	}
	if body.Items != nil {
		tx.Exec("DELETE FROM service_order_items WHERE service_order_id=?", id)
		existing.Total = 0
		for _, it := range body.Items {
			it.Total = lineTotal(it)
			existing.Total += it.Total
			_, err = tx.Exec("INSERT INTO service_order_items (service_order_id,product_id,service_id,description,qty,unit_price,discount,total) VALUES (?,?,?,?,?,?,?,?)",
				id, it.ProductID, it.ServiceID, it.Description, it.Qty, it.UnitPrice, it.Discount, it.Total)
			if err != nil { jsonErr(w, err.Error(), 500); return }
		}
	}

	_, err = tx.Exec(`UPDATE service_orders SET status=?,priority=?,warranty_term_id=?,total=?,notes=?,updated_at=?,delivered_at=? WHERE id=?`,
		existing.Status, existing.Priority, existing.WarrantyTermID, existing.Total, existing.Notes, now, ns(deliveredAt), id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	existing.UpdatedAt = now
	existing.DeliveredAt = deliveredAt
	existing.Equipments = nil
	existing.Items = nil
	loadOrderChildren(&existing)
	logAudit(r, "update", "service_orders", id, "Updated service order ("+existing.Status+")")
	jsonResp(w, existing)
}

func handleDeleteServiceOrder(w http.ResponseWriter, r *http.Request, id string) {
	var status string
	err := db.QueryRow("SELECT status FROM service_orders WHERE id=?", id).Scan(&status)
	if err != nil { jsonErr(w, "not found", 404); return }
	if status == "DELIVERED" { jsonErr(w, "delivered orders cannot be deleted", 409); return }

	_, err = db.Exec("DELETE FROM service_orders WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(r, "delete", "service_orders", id, "Deleted service order "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}
