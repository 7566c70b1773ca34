package main

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCreateUserDuplicateEmail(t *testing.T) {
	setupTestDB(t)
	token := loginAdmin(t)

	body := map[string]interface{}{
		"name": "Tech One", "email": "tech@test.local",
		"password": "password123", "role": "user",
	}
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/users", body, token))
	assertStatus(t, w, 201)

	w = httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/users", body, token))
	assertStatus(t, w, 409)
}

func TestCreateUserDuplicateEmailOfInactive(t *testing.T) {
	setupTestDB(t)
	token := loginAdmin(t)
	createTestUser(t, "tech@test.local", "password123", "user", false)

	body := map[string]interface{}{
		"email": "tech@test.local", "password": "password123",
	}
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/users", body, token))
	assertStatus(t, w, 409)
}

func TestCreateUserShortPassword(t *testing.T) {
	setupTestDB(t)
	token := loginAdmin(t)

	body := map[string]interface{}{"email": "tech@test.local", "password": "short"}
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedJSONRequest("POST", "/api/v1/users", body, token))
	assertStatus(t, w, 400)
}

func TestDeleteUserIsSoft(t *testing.T) {
	setupTestDB(t)
	token := loginAdmin(t)
	techID := createTestUser(t, "tech@test.local", "password123", "user", true)
	techToken := createTestSession(t, techID)

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("DELETE", fmt.Sprintf("/api/v1/users/%d", techID), nil, token))
	assertStatus(t, w, 200)

	var active int
	db.QueryRow("SELECT active FROM users WHERE id=?", techID).Scan(&active)
	if active != 0 {
		t.Errorf("Expected user deactivated, active=%d", active)
	}

	// Row stays for the audit trail
	var count int
	db.QueryRow("SELECT COUNT(*) FROM users WHERE id=?", techID).Scan(&count)
	if count != 1 {
		t.Error("User row must survive deactivation")
	}

	// Existing sessions are cut off
	w = httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("GET", "/api/v1/customers", nil, techToken))
	assertStatus(t, w, 401)
}

func TestDeleteOwnAccountFails(t *testing.T) {
	setupTestDB(t)
	adminID := createTestUser(t, "admin@test.local", "password123", "admin", true)
	token := createTestSession(t, adminID)

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("DELETE", fmt.Sprintf("/api/v1/users/%d", adminID), nil, token))
	assertStatus(t, w, 409)
}

func TestDeleteAdminKeepsOneActive(t *testing.T) {
	setupTestDB(t)
	token := loginAdmin(t)
	otherAdmin := createTestUser(t, "admin2@test.local", "password123", "admin", true)

	// Two active admins: deactivating one works
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("DELETE", fmt.Sprintf("/api/v1/users/%d", otherAdmin), nil, token))
	assertStatus(t, w, 200)

	// With only one active admin left, deactivating an admin is refused
	w = httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("DELETE", fmt.Sprintf("/api/v1/users/%d", otherAdmin), nil, token))
	assertStatus(t, w, 409)
}

func TestListUsersActiveFilter(t *testing.T) {
	setupTestDB(t)
	token := loginAdmin(t)
	createTestUser(t, "active@test.local", "password123", "user", true)
	createTestUser(t, "gone@test.local", "password123", "user", false)

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("GET", "/api/v1/users?active=true", nil, token))
	assertStatus(t, w, 200)

	resp := decodeAPIResponse(t, w)
	items := resp.Data.([]interface{})
	for _, it := range items {
		u := it.(map[string]interface{})
		if u["email"] == "gone@test.local" {
			t.Error("Inactive user must not appear in active=true list")
		}
	}
	if len(items) != 2 {
		t.Errorf("Expected 2 active users (admin + active), got %d", len(items))
	}
}

func TestUserResponsesOmitPasswordHash(t *testing.T) {
	setupTestDB(t)
	token := loginAdmin(t)

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("GET", "/api/v1/users", nil, token))
	assertStatus(t, w, 200)

	body := w.Body.String()
	if strings.Contains(body, "password_hash") || strings.Contains(body, "$2a$") || strings.Contains(body, "$2b$") {
		t.Error("User responses must never carry password material")
	}
}

func TestListUsersSearch(t *testing.T) {
	setupTestDB(t)
	token := loginAdmin(t)
	createTestUser(t, "ana@shop.local", "password123", "user", true)
	createTestUser(t, "bruno@shop.local", "password123", "user", true)

	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, authedRequest("GET", "/api/v1/users?q=ana", nil, token))
	assertStatus(t, w, 200)
	resp := decodeAPIResponse(t, w)
	if resp.Meta == nil || resp.Meta.Total != 1 {
		t.Fatalf("Expected 1 matching user, got meta %+v", resp.Meta)
	}
}
