package main

import (
	"net/http/httptest"
	"testing"
)

func createTestBudget(t *testing.T, token string) string {
	t.Helper()
	body := map[string]interface{}{
		"customer_id": "CUS-2026-0001",
		"items": []map[string]interface{}{
			{"product_id": "PRD-2026-0001", "qty": 2, "unit_price": 150},
		},
	}
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/budgets", body, token))
	assertStatus(t, w, 201)

	var id string
	db.QueryRow("SELECT id FROM budgets ORDER BY created_at DESC LIMIT 1").Scan(&id)
	return id
}

func TestCreateBudget(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "counter@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Maria Santos")
	createTestProduct(t, "PRD-2026-0001", "SSD 480GB", 150, 10)

	id := createTestBudget(t, token)

	var status string
	var total float64
	db.QueryRow("SELECT status, total FROM budgets WHERE id=?", id).Scan(&status, &total)
	if status != "PENDING" {
		t.Errorf("Expected status PENDING, got %s", status)
	}
	if total != 300 {
		t.Errorf("Expected total 300.00, got %.2f", total)
	}

	// Budgets never touch stock
	if got := productStock(t, "PRD-2026-0001"); got != 10 {
		t.Errorf("Budget creation must not move stock, got %d", got)
	}
}

func TestCreateBudgetUnknownCustomer(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "counter@test.local")

	body := map[string]interface{}{
		"customer_id": "CUS-2026-9999",
		"items": []map[string]interface{}{
			{"description": "Labor", "qty": 1, "unit_price": 50},
		},
	}
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/budgets", body, token))
	assertStatus(t, w, 400)
}

func TestConvertBudgetCreatesSale(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "counter@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Maria Santos")
	createTestProduct(t, "PRD-2026-0001", "SSD 480GB", 150, 10)

	id := createTestBudget(t, token)

	body := map[string]interface{}{"payment_method": "CREDIT_CARD", "paid": 1}
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/budgets/"+id+"/convert", body, token))
	assertStatus(t, w, 201)

	var status string
	db.QueryRow("SELECT status FROM budgets WHERE id=?", id).Scan(&status)
	if status != "CONVERTED" {
		t.Errorf("Expected status CONVERTED, got %s", status)
	}

	var saleCount, lineCount int
	db.QueryRow("SELECT COUNT(*) FROM sales").Scan(&saleCount)
	db.QueryRow("SELECT COUNT(*) FROM sale_items").Scan(&lineCount)
	if saleCount != 1 || lineCount != 1 {
		t.Fatalf("Expected 1 sale with 1 line, got %d/%d", saleCount, lineCount)
	}

	if got := productStock(t, "PRD-2026-0001"); got != 8 {
		t.Errorf("Expected stock 8 after conversion, got %d", got)
	}

	var finCount int
	db.QueryRow("SELECT COUNT(*) FROM financial_records WHERE type='REVENUE'").Scan(&finCount)
	if finCount != 1 {
		t.Errorf("Paid conversion must create a revenue record, got %d", finCount)
	}
}

func TestConvertBudgetTwiceFails(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "counter@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Maria Santos")
	createTestProduct(t, "PRD-2026-0001", "SSD 480GB", 150, 10)

	id := createTestBudget(t, token)

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/budgets/"+id+"/convert", nil, token))
	assertStatus(t, w, 201)

	w = httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/budgets/"+id+"/convert", nil, token))
	assertStatus(t, w, 409)

	// Stock moved once, not twice
	if got := productStock(t, "PRD-2026-0001"); got != 8 {
		t.Errorf("Expected stock 8 after single conversion, got %d", got)
	}
}

func TestConvertBudgetInsufficientStock(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "counter@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Maria Santos")
	createTestProduct(t, "PRD-2026-0001", "SSD 480GB", 150, 10)

	id := createTestBudget(t, token)
	db.Exec("UPDATE products SET stock_qty=1 WHERE id='PRD-2026-0001'")

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/budgets/"+id+"/convert", nil, token))
	assertStatus(t, w, 409)

	var status string
	db.QueryRow("SELECT status FROM budgets WHERE id=?", id).Scan(&status)
	if status != "PENDING" {
		t.Errorf("Budget must stay PENDING after failed conversion, got %s", status)
	}
	var saleCount int
	db.QueryRow("SELECT COUNT(*) FROM sales").Scan(&saleCount)
	if saleCount != 0 {
		t.Errorf("No sale may exist after failed conversion, got %d", saleCount)
	}
}

func TestConvertRejectedBudgetFails(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "counter@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Maria Santos")
	createTestProduct(t, "PRD-2026-0001", "SSD 480GB", 150, 10)

	id := createTestBudget(t, token)
	db.Exec("UPDATE budgets SET status='REJECTED' WHERE id=?", id)

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/budgets/"+id+"/convert", nil, token))
	assertStatus(t, w, 409)
}

func TestUpdateConvertedBudgetFails(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "counter@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Maria Santos")
	createTestProduct(t, "PRD-2026-0001", "SSD 480GB", 150, 10)

	id := createTestBudget(t, token)
	db.Exec("UPDATE budgets SET status='CONVERTED' WHERE id=?", id)

	body := map[string]interface{}{"notes": "too late"}
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("PUT", "/api/v1/budgets/"+id, body, token))
	assertStatus(t, w, 409)
}

func TestListBudgetsSearch(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "counter@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Maria Santos")

	for _, notes := range []string{"Gaming build quote", "Office machine refresh"} {
		body := map[string]interface{}{
			"customer_id": "CUS-2026-0001",
			"notes":       notes,
			"items": []map[string]interface{}{
				{"description": "Labor", "qty": 1, "unit_price": 100},
			},
		}
		w := httptest.NewRecorder()
		testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/budgets", body, token))
		assertStatus(t, w, 201)
	}

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("GET", "/api/v1/budgets?q=gaming", nil, token))
	assertStatus(t, w, 200)
	resp := decodeAPIResponse(t, w)
	if resp.Meta == nil || resp.Meta.Total != 1 {
		t.Fatalf("Expected 1 matching budget, got meta %+v", resp.Meta)
	}
}
