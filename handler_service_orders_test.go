package main

import (
	"net/http/httptest"
	"testing"
)

func createTestOrder(t *testing.T, token string) string {
	t.Helper()
	body := map[string]interface{}{
		"customer_id": "CUS-2026-0001",
		"priority":    "HIGH",
		"equipments": []map[string]interface{}{
			{"device": "Notebook Dell Inspiron", "serial_number": "SN123", "reported_issue": "Does not power on"},
		},
		"items": []map[string]interface{}{
			{"description": "Diagnosis", "qty": 1, "unit_price": 50},
		},
	}
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/service-orders", body, token))
	assertStatus(t, w, 201)

	var id string
	db.QueryRow("SELECT id FROM service_orders ORDER BY created_at DESC LIMIT 1").Scan(&id)
	return id
}

func setOrderStatus(t *testing.T, token, id, status string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("PUT", "/api/v1/service-orders/"+id,
		map[string]interface{}{"status": status}, token))
	return w
}

func TestCreateServiceOrder(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "tech@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Joao Silva")

	id := createTestOrder(t, token)

	var status, priority string
	var total float64
	db.QueryRow("SELECT status, priority, total FROM service_orders WHERE id=?", id).Scan(&status, &priority, &total)
	if status != "OPENED" {
		t.Errorf("Expected status OPENED, got %s", status)
	}
	if priority != "HIGH" {
		t.Errorf("Expected priority HIGH, got %s", priority)
	}
	if total != 50 {
		t.Errorf("Expected total 50.00, got %.2f", total)
	}

	var eqCount int
	db.QueryRow("SELECT COUNT(*) FROM service_order_equipments WHERE service_order_id=?", id).Scan(&eqCount)
	if eqCount != 1 {
		t.Errorf("Expected 1 equipment, got %d", eqCount)
	}
}

func TestCreateServiceOrderRequiresEquipment(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "tech@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Joao Silva")

	body := map[string]interface{}{"customer_id": "CUS-2026-0001"}
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/service-orders", body, token))
	assertStatus(t, w, 400)
}

func TestServiceOrderStatusWorkflow(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "tech@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Joao Silva")
	id := createTestOrder(t, token)

	for _, status := range []string{"IN_QUEUE", "IN_PROGRESS", "AWAITING_PARTS", "IN_PROGRESS", "READY", "DELIVERED"} {
		w := setOrderStatus(t, token, id, status)
		assertStatus(t, w, 200)
	}

	var deliveredAt *string
	db.QueryRow("SELECT delivered_at FROM service_orders WHERE id=?", id).Scan(&deliveredAt)
	if deliveredAt == nil {
		t.Error("Expected delivered_at to be stamped on DELIVERED")
	}
}

func TestServiceOrderInvalidTransition(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "tech@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Joao Silva")
	id := createTestOrder(t, token)

	// OPENED cannot jump straight to DELIVERED
	w := setOrderStatus(t, token, id, "DELIVERED")
	assertStatus(t, w, 409)

	var status string
	db.QueryRow("SELECT status FROM service_orders WHERE id=?", id).Scan(&status)
	if status != "OPENED" {
		t.Errorf("Status must stay OPENED after rejected transition, got %s", status)
	}
}

func TestServiceOrderWarrantyReturn(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "tech@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Joao Silva")
	id := createTestOrder(t, token)

	for _, status := range []string{"IN_PROGRESS", "READY", "DELIVERED", "WARRANTY_RETURN", "IN_PROGRESS"} {
		w := setOrderStatus(t, token, id, status)
		assertStatus(t, w, 200)
	}
}

func TestServiceOrderCancelledIsTerminal(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "tech@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Joao Silva")
	id := createTestOrder(t, token)

	w := setOrderStatus(t, token, id, "CANCELLED")
	assertStatus(t, w, 200)

	w = setOrderStatus(t, token, id, "IN_PROGRESS")
	assertStatus(t, w, 409)
}

func TestServiceOrderItemsReplaceRecomputesTotal(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "tech@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Joao Silva")
	id := createTestOrder(t, token)

	body := map[string]interface{}{
		"items": []map[string]interface{}{
			{"description": "Screen replacement", "qty": 1, "unit_price": 300},
			{"description": "Labor", "qty": 2, "unit_price": 60, "discount": 20},
		},
	}
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("PUT", "/api/v1/service-orders/"+id, body, token))
	assertStatus(t, w, 200)

	var total float64
	db.QueryRow("SELECT total FROM service_orders WHERE id=?", id).Scan(&total)
	if total != 400 {
		t.Errorf("Expected total 400.00 (300 + 2*60-20), got %.2f", total)
	}
}

func TestDeleteDeliveredOrderFails(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "tech@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Joao Silva")
	id := createTestOrder(t, token)

	for _, status := range []string{"IN_PROGRESS", "READY", "DELIVERED"} {
		w := setOrderStatus(t, token, id, status)
		assertStatus(t, w, 200)
	}

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("DELETE", "/api/v1/service-orders/"+id, nil, token))
	assertStatus(t, w, 409)
}

func TestListServiceOrdersByStatus(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "tech@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Joao Silva")

	id1 := createTestOrder(t, token)
	createTestOrder(t, token)
	setOrderStatus(t, token, id1, "IN_PROGRESS")

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("GET", "/api/v1/service-orders?status=IN_PROGRESS", nil, token))
	assertStatus(t, w, 200)

	resp := decodeAPIResponse(t, w)
	items, ok := resp.Data.([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("Expected 1 order in IN_PROGRESS, got %v", resp.Data)
	}
}

func TestListServiceOrdersSearch(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "tech@test.local")
	createTestCustomer(t, "CUS-2026-0001", "Joao Silva")

	for _, notes := range []string{"Customer will pick up friday", "Urgent board repair"} {
		body := map[string]interface{}{
			"customer_id": "CUS-2026-0001",
			"notes":       notes,
			"equipments": []map[string]interface{}{
				{"device": "Notebook"},
			},
		}
		w := httptest.NewRecorder()
		testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/service-orders", body, token))
		assertStatus(t, w, 201)
	}

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("GET", "/api/v1/service-orders?q=friday", nil, token))
	assertStatus(t, w, 200)
	resp := decodeAPIResponse(t, w)
	if resp.Meta == nil || resp.Meta.Total != 1 {
		t.Fatalf("Expected 1 matching order, got meta %+v", resp.Meta)
	}
}
