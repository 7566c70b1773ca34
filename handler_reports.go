package main

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"
)

// handleReports aggregates the trailing six months of sales, order
// counts by status, top sellers, and financial totals by type.
func handleReports(w http.ResponseWriter, r *http.Request) {
	rep := Report{
		SalesByMonth:    salesByMonth(6),
		OrdersByStatus:  ordersByStatus(),
		TopProducts:     topProducts(5),
		FinancialTotals: financialTotals(),
	}

	if r.URL.Query().Get("format") == "csv" {
		writeReportCSV(w, rep)
		return
	}
	jsonResp(w, rep)
}

// salesByMonth returns exactly n buckets, oldest first, with months
// that had no sales present as zeros.
func salesByMonth(n int) []MonthBucket {
	buckets := make([]MonthBucket, 0, n)
	byMonth := map[string]*MonthBucket{}

	now := time.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := n - 1; i >= 0; i-- {
		m := first.AddDate(0, -i, 0).Format("2006-01")
		buckets = append(buckets, MonthBucket{Month: m})
		byMonth[m] = &buckets[len(buckets)-1]
	}

	start := first.AddDate(0, -(n - 1), 0).Format("2006-01-02")
	rows, err := db.Query("SELECT strftime('%Y-%m', created_at), COALESCE(SUM(total),0), COUNT(*) FROM sales WHERE created_at >= ? GROUP BY 1", start)
	if err != nil {
		return buckets
	}
	defer rows.Close()
	for rows.Next() {
		var month string
		var total float64
		var count int
		rows.Scan(&month, &total, &count)
		if b, ok := byMonth[month]; ok {
			b.Total = total
			b.Count = count
		}
	}
	return buckets
}

// ordersByStatus always reports every status, zero counts included.
func ordersByStatus() map[string]int {
	out := map[string]int{}
	for _, s := range validOrderStatuses {
		out[s] = 0
	}
	rows, err := db.Query("SELECT status, COUNT(*) FROM service_orders GROUP BY status")
	if err != nil {
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		rows.Scan(&status, &count)
		out[status] = count
	}
	return out
}

func topProducts(n int) []ProductRank {
	rows, err := db.Query(`
		SELECT si.product_id, COALESCE(p.name, si.product_id), SUM(si.qty) AS sold
		FROM sale_items si LEFT JOIN products p ON p.id = si.product_id
		WHERE si.product_id != ''
		GROUP BY si.product_id ORDER BY sold DESC LIMIT ?`, n)
	if err != nil {
		return []ProductRank{}
	}
	defer rows.Close()
	var out []ProductRank
	for rows.Next() {
		var p ProductRank
		rows.Scan(&p.ProductID, &p.Name, &p.QtySold)
		out = append(out, p)
	}
	if out == nil { out = []ProductRank{} }
	return out
}

func financialTotals() map[string]float64 {
	out := map[string]float64{}
	for _, t := range validRecordTypes {
		out[t] = 0
	}
	rows, err := db.Query("SELECT type, COALESCE(SUM(amount),0) FROM financial_records GROUP BY type")
	if err != nil {
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		var total float64
		rows.Scan(&t, &total)
		out[t] = total
	}
	return out
}

func writeReportCSV(w http.ResponseWriter, rep Report) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=report.csv")
	cw := csv.NewWriter(w)

	cw.Write([]string{"section", "key", "total", "count"})
	for _, b := range rep.SalesByMonth {
		cw.Write([]string{"sales_by_month", b.Month, fmt.Sprintf("%.2f", b.Total), fmt.Sprintf("%d", b.Count)})
	}
	for _, s := range validOrderStatuses {
		cw.Write([]string{"orders_by_status", s, "", fmt.Sprintf("%d", rep.OrdersByStatus[s])})
	}
	for _, p := range rep.TopProducts {
		cw.Write([]string{"top_products", p.ProductID + " " + p.Name, "", fmt.Sprintf("%d", p.QtySold)})
	}
	for _, t := range validRecordTypes {
		cw.Write([]string{"financial_totals", t, fmt.Sprintf("%.2f", rep.FinancialTotals[t]), ""})
	}
	cw.Flush()
}
