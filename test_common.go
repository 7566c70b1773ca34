package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// setupTestDB points the global db at a fresh in-memory database with
// the full schema applied.
func setupTestDB(t *testing.T) {
	t.Helper()
	testDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	// One connection so every query sees the same in-memory database
	testDB.SetMaxOpenConns(1)
	if _, err := testDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	db = testDB
	if err := runMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		testDB.Close()
	})
	if wsHub == nil {
		initWebsocket()
	}
}

// createTestUser inserts a user and returns its id.
func createTestUser(t *testing.T, email, password, role string, active bool) int {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	activeInt := 0
	if active {
		activeInt = 1
	}

	result, err := db.Exec(
		"INSERT INTO users (name, email, password_hash, role, active) VALUES (?, ?, ?, ?, ?)",
		email, email, string(hash), role, activeInt,
	)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	id, _ := result.LastInsertId()
	return int(id)
}

// createTestSession creates a session token for the given user with 24h expiry.
func createTestSession(t *testing.T, userID int) string {
	t.Helper()
	token := "test-session-token-" + time.Now().Format("20060102150405.000000")
	expiresAt := time.Now().UTC().Add(24 * time.Hour)

	_, err := db.Exec(
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}
	return token
}

// loginAdmin creates an admin user and returns their session token.
func loginAdmin(t *testing.T) string {
	t.Helper()
	adminID := createTestUser(t, "admin@test.local", "password123", "admin", true)
	return createTestSession(t, adminID)
}

// loginUser creates a regular user and returns their session token.
func loginUser(t *testing.T, email string) string {
	t.Helper()
	userID := createTestUser(t, email, "password123", "user", true)
	return createTestSession(t, userID)
}

// authedRequest creates a request carrying a session cookie.
func authedRequest(method, path string, body []byte, sessionToken string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sessionToken})
	}
	return req
}

func authedJSONRequest(method, path string, body interface{}, sessionToken string) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := authedRequest(method, path, bodyBytes, sessionToken)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// testRouter wires the full middleware chain, as main does.
func testRouter() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/auth/", handleAuth)
	mux.HandleFunc("/api/v1/", handleAPI)
	return jsonContentType(requireAuth(requireRBAC(mux)))
}

func decodeAPIResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var response APIResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode API response: %v", err)
	}
	return response
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// createTestCustomer inserts a customer row directly.
func createTestCustomer(t *testing.T, id, name string) {
	t.Helper()
	_, err := db.Exec("INSERT INTO customers (id, name) VALUES (?, ?)", id, name)
	if err != nil {
		t.Fatalf("Failed to create test customer: %v", err)
	}
}

// createTestProduct inserts a product row with the given stock.
func createTestProduct(t *testing.T, id, name string, price float64, stock int) {
	t.Helper()
	_, err := db.Exec("INSERT INTO products (id, name, sale_price, stock_qty) VALUES (?, ?, ?, ?)",
		id, name, price, stock)
	if err != nil {
		t.Fatalf("Failed to create test product: %v", err)
	}
}

func productStock(t *testing.T, id string) int {
	t.Helper()
	var qty int
	if err := db.QueryRow("SELECT stock_qty FROM products WHERE id=?", id).Scan(&qty); err != nil {
		t.Fatalf("Failed to read stock for %s: %v", id, err)
	}
	return qty
}
