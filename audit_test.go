package main

import (
	"net/http/httptest"
	"testing"
)

func TestMutationsAreAudited(t *testing.T) {
	setupTestDB(t)
	adminID := createTestUser(t, "admin@test.local", "password123", "admin", true)
	token := createTestSession(t, adminID)

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/customers",
		map[string]string{"name": "Joao Silva"}, token))
	assertStatus(t, w, 201)

	var username, action, module string
	err := db.QueryRow("SELECT username, action, module FROM audit_log ORDER BY id DESC LIMIT 1").
		Scan(&username, &action, &module)
	if err != nil {
		t.Fatalf("Expected an audit entry: %v", err)
	}
	if username != "admin@test.local" || action != "create" || module != "customers" {
		t.Errorf("Unexpected audit entry %s/%s/%s", username, action, module)
	}
}

func TestAuditListFilterByModule(t *testing.T) {
	setupTestDB(t)
	token := loginAdmin(t)

	db.Exec("INSERT INTO audit_log (username, action, module, record_id) VALUES ('a', 'create', 'sales', 'SAL-1')")
	db.Exec("INSERT INTO audit_log (username, action, module, record_id) VALUES ('a', 'create', 'products', 'PRD-1')")

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("GET", "/api/v1/audit?module=sales", nil, token))
	assertStatus(t, w, 200)

	resp := decodeAPIResponse(t, w)
	items := resp.Data.([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 sales audit entry, got %d", len(items))
	}
}

func TestNextIDSequencePerTable(t *testing.T) {
	setupTestDB(t)

	first := nextID("CUS", "customers", 4)
	db.Exec("INSERT INTO customers (id, name) VALUES (?, 'A')", first)
	second := nextID("CUS", "customers", 4)
	if first == second {
		t.Errorf("Expected distinct sequential ids, got %s twice", first)
	}

	// Another table starts its own sequence
	prd := nextID("PRD", "products", 4)
	if prd[len(prd)-4:] != "0001" {
		t.Errorf("Expected products sequence to start at 0001, got %s", prd)
	}
}
