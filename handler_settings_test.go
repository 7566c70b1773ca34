package main

import (
	"net/http/httptest"
	"testing"
)

func TestSettingsLazySingleton(t *testing.T) {
	setupTestDB(t)
	token := loginUser(t, "counter@test.local")

	// First read creates the row
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("GET", "/api/v1/settings", nil, token))
	assertStatus(t, w, 200)

	var count int
	db.QueryRow("SELECT COUNT(*) FROM system_settings").Scan(&count)
	if count != 1 {
		t.Fatalf("Expected exactly 1 settings row, got %d", count)
	}

	// Repeated reads never add rows
	w = httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("GET", "/api/v1/settings", nil, token))
	assertStatus(t, w, 200)

	db.QueryRow("SELECT COUNT(*) FROM system_settings").Scan(&count)
	if count != 1 {
		t.Errorf("Expected settings row to stay singular, got %d", count)
	}
}

func TestUpdateSettings(t *testing.T) {
	setupTestDB(t)
	token := loginAdmin(t)

	body := map[string]string{
		"company_name": "TechFix Assistencia", "email": "contato@techfix.example",
		"city": "Sao Paulo", "state": "SP",
	}
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/settings", body, token))
	assertStatus(t, w, 200)

	var name, city string
	db.QueryRow("SELECT company_name, city FROM system_settings WHERE id=1").Scan(&name, &city)
	if name != "TechFix Assistencia" || city != "Sao Paulo" {
		t.Errorf("Settings not persisted: %q / %q", name, city)
	}
}

func TestUpdateSettingsInvalidEmail(t *testing.T) {
	setupTestDB(t)
	token := loginAdmin(t)

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/settings",
		map[string]string{"email": "nope"}, token))
	assertStatus(t, w, 400)
}
