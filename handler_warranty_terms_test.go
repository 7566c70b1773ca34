package main

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWarrantyTermCRUD(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "counter@test.local")

	body := map[string]interface{}{
		"name": "90-day parts", "duration_days": 90, "terms": "Covers replaced parts only",
	}
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/warranty-terms", body, token))
	assertStatus(t, w, 201)

	data := decodeAPIResponse(t, w).Data.(map[string]interface{})
	id, _ := data["id"].(string)
	if !strings.HasPrefix(id, "WT-") {
		t.Fatalf("Expected WT- prefixed id, got %q", id)
	}

	w = httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("PUT", "/api/v1/warranty-terms/"+id,
		map[string]interface{}{"duration_days": 120}, token))
	assertStatus(t, w, 200)

	var name string
	var days int
	db.QueryRow("SELECT name, duration_days FROM warranty_terms WHERE id=?", id).Scan(&name, &days)
	if name != "90-day parts" {
		t.Errorf("Partial update must not clear name, got %q", name)
	}
	if days != 120 {
		t.Errorf("Expected updated duration 120, got %d", days)
	}

	w = httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("DELETE", "/api/v1/warranty-terms/"+id, nil, token))
	assertStatus(t, w, 200)
}

func TestCreateWarrantyTermValidation(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "counter@test.local")

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/warranty-terms",
		map[string]interface{}{"duration_days": -1}, token))
	assertStatus(t, w, 400)
}

func TestListWarrantyTermsSearch(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "counter@test.local")

	terms := []map[string]interface{}{
		{"name": "Standard 90 days", "duration_days": 90},
		{"name": "Extended", "duration_days": 365, "terms": "standard coverage plus labor"},
		{"name": "No warranty", "duration_days": 0},
	}
	for _, body := range terms {
		w := httptest.NewRecorder()
		testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/warranty-terms", body, token))
		assertStatus(t, w, 201)
	}

	// Matches name and terms text
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("GET", "/api/v1/warranty-terms?q=standard", nil, token))
	assertStatus(t, w, 200)
	resp := decodeAPIResponse(t, w)
	if resp.Meta == nil || resp.Meta.Total != 2 {
		t.Fatalf("Expected 2 matching warranty terms, got meta %+v", resp.Meta)
	}
}
