package main

import (
	"fmt"
	"net/http"

	"ctrlos/internal/export"
)

// handleExport streams customers, products or sales as CSV or XLSX.
func handleExport(w http.ResponseWriter, r *http.Request, entity string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		jsonErr(w, "format must be csv or xlsx", 400)
		return
	}

	var sheet string
	var headers []string
	var data [][]string

	switch entity {
	case "customers":
		sheet = "Customers"
		headers = []string{"ID", "Name", "Email", "Phone", "Document", "City", "State", "Created At"}
		rows, err := db.Query("SELECT id,name,COALESCE(email,''),COALESCE(phone,''),COALESCE(document,''),COALESCE(city,''),COALESCE(state,''),created_at FROM customers ORDER BY name")
		if err != nil { jsonErr(w, err.Error(), 500); return }
		defer rows.Close()
		for rows.Next() {
			var id, name, email, phone, document, city, state, createdAt string
			rows.Scan(&id, &name, &email, &phone, &document, &city, &state, &createdAt)
			data = append(data, []string{id, name, email, phone, document, city, state, createdAt})
		}

	case "products":
		sheet = "Products"
		headers = []string{"ID", "Name", "SKU", "Cost Price", "Sale Price", "Stock", "Min Stock", "Active"}
		rows, err := db.Query("SELECT id,name,COALESCE(sku,''),cost_price,sale_price,stock_qty,min_stock,active FROM products ORDER BY name")
		if err != nil { jsonErr(w, err.Error(), 500); return }
		defer rows.Close()
		for rows.Next() {
			var id, name, sku string
			var cost, sale float64
			var stock, minStock, active int
			rows.Scan(&id, &name, &sku, &cost, &sale, &stock, &minStock, &active)
			data = append(data, []string{id, name, sku,
				fmt.Sprintf("%.2f", cost), fmt.Sprintf("%.2f", sale),
				fmt.Sprintf("%d", stock), fmt.Sprintf("%d", minStock), fmt.Sprintf("%d", active)})
		}

	case "sales":
		sheet = "Sales"
		headers = []string{"ID", "Customer", "Seller", "Payment Method", "Paid", "Total", "Created At"}
		rows, err := db.Query("SELECT id,COALESCE(customer_id,''),COALESCE(seller,''),payment_method,paid,total,created_at FROM sales ORDER BY created_at DESC")
		if err != nil { jsonErr(w, err.Error(), 500); return }
		defer rows.Close()
		for rows.Next() {
			var id, customer, seller, method, createdAt string
			var paid int
			var total float64
			rows.Scan(&id, &customer, &seller, &method, &paid, &total, &createdAt)
			data = append(data, []string{id, customer, seller, method,
				fmt.Sprintf("%d", paid), fmt.Sprintf("%.2f", total), createdAt})
		}

	default:
		jsonErr(w, "unknown export entity", 404)
		return
	}

	logAudit(r, "export", entity, format, fmt.Sprintf("Exported %d %s rows as %s", len(data), entity, format))

	if format == "xlsx" {
		export.Excel(w, sheet, headers, data)
	} else {
		export.CSV(w, entity+".csv", headers, data)
	}
}
