package main

import (
	"net/http"
	"time"
)

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	var d DashboardData

	db.QueryRow("SELECT COUNT(*) FROM service_orders WHERE status NOT IN ('DELIVERED','CANCELLED')").Scan(&d.OpenServiceOrders)
	db.QueryRow("SELECT COUNT(*) FROM products WHERE active=1 AND stock_qty <= min_stock AND min_stock > 0").Scan(&d.LowStockProducts)
	db.QueryRow("SELECT COUNT(*) FROM financial_records WHERE paid=0").Scan(&d.UnpaidFinancials)
	db.QueryRow("SELECT COUNT(*) FROM budgets WHERE status='PENDING'").Scan(&d.PendingBudgets)

	today := time.Now().Format("2006-01-02")
	db.QueryRow("SELECT COUNT(*) FROM sales WHERE created_at >= ?", today).Scan(&d.SalesToday)

	monthStart := time.Now().Format("2006-01") + "-01"
	db.QueryRow("SELECT COALESCE(SUM(amount),0) FROM financial_records WHERE type='REVENUE' AND paid=1 AND created_at >= ?", monthStart).Scan(&d.RevenueThisMonth)

	jsonResp(w, d)
}

func handleListAudit(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	module := r.URL.Query().Get("module")

	where := ""
	args := []interface{}{}
	if module != "" {
		where = " WHERE module = ?"
		args = append(args, module)
	}

	var total int
	db.QueryRow("SELECT COUNT(*) FROM audit_log"+where, args...).Scan(&total)

	rows, err := db.Query("SELECT id,username,action,module,record_id,COALESCE(summary,''),created_at FROM audit_log"+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var items []AuditEntry
	for rows.Next() {
		var a AuditEntry
		rows.Scan(&a.ID, &a.Username, &a.Action, &a.Module, &a.RecordID, &a.Summary, &a.CreatedAt)
		items = append(items, a)
	}
	if items == nil { items = []AuditEntry{} }
	jsonRespMeta(w, items, total, page, limit)
}
