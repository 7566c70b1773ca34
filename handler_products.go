package main

import (
	"net/http"
	"time"
)

const productCols = "id,name,COALESCE(description,''),COALESCE(sku,''),cost_price,sale_price,stock_qty,min_stock,active,created_at,updated_at"

func scanProduct(scan func(...interface{}) error) (Product, error) {
	var p Product
	err := scan(&p.ID, &p.Name, &p.Description, &p.SKU, &p.CostPrice, &p.SalePrice, &p.StockQty, &p.MinStock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	q := r.URL.Query().Get("q")
	lowStock := r.URL.Query().Get("low_stock")
	activeOnly := r.URL.Query().Get("active")

	where := " WHERE 1=1"
	args := []interface{}{}
	if q != "" {
		where += " AND (name LIKE ? OR sku LIKE ? OR description LIKE ?)"
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}
	if lowStock == "true" {
		where += " AND stock_qty <= min_stock AND min_stock > 0"
	}
	if activeOnly == "true" {
		where += " AND active = 1"
	}

	var total int
	db.QueryRow("SELECT COUNT(*) FROM products"+where, args...).Scan(&total)

	rows, err := db.Query("SELECT "+productCols+" FROM products"+where+" ORDER BY name LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var items []Product
	for rows.Next() {
		p, _ := scanProduct(rows.Scan)
		items = append(items, p)
	}
	if items == nil { items = []Product{} }
	jsonRespMeta(w, items, total, page, limit)
}

func handleGetProduct(w http.ResponseWriter, r *http.Request, id string) {
	p, err := scanProduct(db.QueryRow("SELECT "+productCols+" FROM products WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, p)
}

func handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p Product
	p.Active = 1
	if err := decodeBody(r, &p); err != nil { jsonErr(w, "invalid body", 400); return }

	v := &ValidationErrors{}
	requireField(v, "name", p.Name)
	validateNonNegative(v, "cost_price", p.CostPrice)
	validateNonNegative(v, "sale_price", p.SalePrice)
	validateNonNegative(v, "stock_qty", float64(p.StockQty))
	validateNonNegative(v, "min_stock", float64(p.MinStock))
	if v.HasErrors() { jsonValidationErr(w, v); return }

	p.ID = nextID("PRD", "products", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := db.Exec(`INSERT INTO products (id,name,description,sku,cost_price,sale_price,stock_qty,min_stock,active,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Description, p.SKU, p.CostPrice, p.SalePrice, p.StockQty, p.MinStock, p.Active, now, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	p.CreatedAt, p.UpdatedAt = now, now
	logAudit(r, "create", "products", p.ID, "Created product "+p.Name)
	w.WriteHeader(201)
	jsonResp(w, p)
}

func handleUpdateProduct(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := scanProduct(db.QueryRow("SELECT "+productCols+" FROM products WHERE id=?", id).Scan)
	if err != nil { jsonErr(w, "not found", 404); return }

	var body struct {
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		SKU         *string  `json:"sku"`
		CostPrice   *float64 `json:"cost_price"`
		SalePrice   *float64 `json:"sale_price"`
		StockQty    *int     `json:"stock_qty"`
		MinStock    *int     `json:"min_stock"`
		Active      *int     `json:"active"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }

	if body.Name != nil { existing.Name = *body.Name }
	if body.Description != nil { existing.Description = *body.Description }
	if body.SKU != nil { existing.SKU = *body.SKU }
	if body.CostPrice != nil { existing.CostPrice = *body.CostPrice }
	if body.SalePrice != nil { existing.SalePrice = *body.SalePrice }
	if body.StockQty != nil { existing.StockQty = *body.StockQty }
	if body.MinStock != nil { existing.MinStock = *body.MinStock }
	if body.Active != nil { existing.Active = *body.Active }

	v := &ValidationErrors{}
	requireField(v, "name", existing.Name)
	validateNonNegative(v, "cost_price", existing.CostPrice)
	validateNonNegative(v, "sale_price", existing.SalePrice)
	validateNonNegative(v, "stock_qty", float64(existing.StockQty))
	validateNonNegative(v, "min_stock", float64(existing.MinStock))
	if v.HasErrors() { jsonValidationErr(w, v); return }

	now := time.Now().Format("2006-01-02 15:04:05")
	_, err = db.Exec(`UPDATE products SET name=?,description=?,sku=?,cost_price=?,sale_price=?,stock_qty=?,min_stock=?,active=?,updated_at=? WHERE id=?`,
		existing.Name, existing.Description, existing.SKU, existing.CostPrice, existing.SalePrice, existing.StockQty, existing.MinStock, existing.Active, now, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	existing.UpdatedAt = now
	logAudit(r, "update", "products", id, "Updated product "+existing.Name)
	jsonResp(w, existing)
}

func handleDeleteProduct(w http.ResponseWriter, r *http.Request, id string) {
	// Products referenced by sale lines are deactivated instead of removed
	var refs int
	db.QueryRow("SELECT (SELECT COUNT(*) FROM sale_items WHERE product_id=?) + (SELECT COUNT(*) FROM service_order_items WHERE product_id=?) + (SELECT COUNT(*) FROM budget_items WHERE product_id=?)",
		id, id, id).Scan(&refs)
	if refs > 0 {
		now := time.Now().Format("2006-01-02 15:04:05")
		res, err := db.Exec("UPDATE products SET active=0,updated_at=? WHERE id=?", now, id)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
		logAudit(r, "deactivate", "products", id, "Deactivated product "+id)
		jsonResp(w, map[string]string{"status": "deactivated"})
		return
	}

	res, err := db.Exec("DELETE FROM products WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }

	logAudit(r, "delete", "products", id, "Deleted product "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}
