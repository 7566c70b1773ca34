package main

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

var db *sql.DB

func initDB(path string) error {
	// Close previous connection if any (prevents goroutine leaks in tests)
	if db != nil {
		db.Close()
	}
	var err error
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err = sql.Open("sqlite", path+sep+"_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=1")
	if err != nil {
		return err
	}

	// SQLite handles 1 writer + multiple readers with WAL mode
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	// Some drivers don't parse connection string params correctly, so
	// set the pragmas explicitly as well.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	return runMigrations()
}

func runMigrations() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY, name TEXT NOT NULL,
			email TEXT DEFAULT '', phone TEXT DEFAULT '',
			document TEXT DEFAULT '', address TEXT DEFAULT '',
			city TEXT DEFAULT '', state TEXT DEFAULT '', zip_code TEXT DEFAULT '',
			notes TEXT DEFAULT '',
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY, name TEXT NOT NULL,
			description TEXT DEFAULT '', sku TEXT DEFAULT '',
			cost_price REAL DEFAULT 0 CHECK(cost_price >= 0),
			sale_price REAL DEFAULT 0 CHECK(sale_price >= 0),
			stock_qty INTEGER DEFAULT 0 CHECK(stock_qty >= 0),
			min_stock INTEGER DEFAULT 0 CHECK(min_stock >= 0),
			active INTEGER DEFAULT 1,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS services (
			id TEXT PRIMARY KEY, name TEXT NOT NULL,
			description TEXT DEFAULT '',
			price REAL DEFAULT 0 CHECK(price >= 0),
			duration_minutes INTEGER DEFAULT 0 CHECK(duration_minutes >= 0),
			active INTEGER DEFAULT 1,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS warranty_terms (
			id TEXT PRIMARY KEY, name TEXT NOT NULL,
			duration_days INTEGER DEFAULT 90 CHECK(duration_days >= 0),
			terms TEXT DEFAULT '',
			active INTEGER DEFAULT 1,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS service_orders (
			id TEXT PRIMARY KEY, customer_id TEXT NOT NULL,
			status TEXT DEFAULT 'OPENED' CHECK(status IN ('OPENED','IN_QUEUE','IN_PROGRESS','AWAITING_PARTS','READY','DELIVERED','CANCELLED','WARRANTY_RETURN')),
			priority TEXT DEFAULT 'NORMAL' CHECK(priority IN ('LOW','NORMAL','HIGH','URGENT')),
			warranty_term_id TEXT DEFAULT '',
			total REAL DEFAULT 0,
			notes TEXT DEFAULT '',
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			delivered_at TEXT,
			FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS service_order_equipments (
			id INTEGER PRIMARY KEY AUTOINCREMENT, service_order_id TEXT NOT NULL,
			device TEXT NOT NULL, serial_number TEXT DEFAULT '',
			reported_issue TEXT DEFAULT '', diagnosis TEXT DEFAULT '', solution TEXT DEFAULT '',
			FOREIGN KEY (service_order_id) REFERENCES service_orders(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS service_order_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT, service_order_id TEXT NOT NULL,
			product_id TEXT DEFAULT '', service_id TEXT DEFAULT '',
			description TEXT DEFAULT '',
			qty INTEGER NOT NULL CHECK(qty > 0),
			unit_price REAL DEFAULT 0 CHECK(unit_price >= 0),
			discount REAL DEFAULT 0 CHECK(discount >= 0),
			total REAL DEFAULT 0,
			FOREIGN KEY (service_order_id) REFERENCES service_orders(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			customer_id TEXT DEFAULT '',
			seller TEXT DEFAULT '',
			payment_method TEXT DEFAULT 'CASH' CHECK(payment_method IN ('CASH','CREDIT_CARD','DEBIT_CARD','PIX','TRANSFER','OTHER')),
			paid INTEGER DEFAULT 0,
			total REAL DEFAULT 0,
			notes TEXT DEFAULT '',
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sale_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT, sale_id TEXT NOT NULL,
			product_id TEXT DEFAULT '', service_id TEXT DEFAULT '',
			description TEXT DEFAULT '',
			qty INTEGER NOT NULL CHECK(qty > 0),
			unit_price REAL DEFAULT 0 CHECK(unit_price >= 0),
			discount REAL DEFAULT 0 CHECK(discount >= 0),
			total REAL DEFAULT 0,
			FOREIGN KEY (sale_id) REFERENCES sales(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS budgets (
			id TEXT PRIMARY KEY, customer_id TEXT NOT NULL,
			status TEXT DEFAULT 'PENDING' CHECK(status IN ('PENDING','APPROVED','REJECTED','EXPIRED','CONVERTED')),
			valid_until DATE,
			total REAL DEFAULT 0,
			notes TEXT DEFAULT '',
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS budget_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT, budget_id TEXT NOT NULL,
			product_id TEXT DEFAULT '', service_id TEXT DEFAULT '',
			description TEXT DEFAULT '',
			qty INTEGER NOT NULL CHECK(qty > 0),
			unit_price REAL DEFAULT 0 CHECK(unit_price >= 0),
			discount REAL DEFAULT 0 CHECK(discount >= 0),
			total REAL DEFAULT 0,
			FOREIGN KEY (budget_id) REFERENCES budgets(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS financial_records (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL CHECK(type IN ('REVENUE','EXPENSE','INVESTMENT','LOAN')),
			category TEXT DEFAULT '',
			description TEXT DEFAULT '',
			amount REAL NOT NULL CHECK(amount > 0),
			payment_method TEXT DEFAULT 'CASH' CHECK(payment_method IN ('CASH','CREDIT_CARD','DEBIT_CARD','PIX','TRANSFER','OTHER')),
			paid INTEGER DEFAULT 0,
			due_date DATE,
			paid_at TEXT,
			customer_id TEXT DEFAULT '',
			sale_id TEXT DEFAULT '',
			service_order_id TEXT DEFAULT '',
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT DEFAULT '',
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT DEFAULT 'user',
			active INTEGER DEFAULT 1,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			last_login TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			expires_at TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS system_settings (
			id INTEGER PRIMARY KEY CHECK(id = 1),
			company_name TEXT DEFAULT '',
			trade_name TEXT DEFAULT '',
			document TEXT DEFAULT '',
			email TEXT DEFAULT '',
			phone TEXT DEFAULT '',
			address TEXT DEFAULT '',
			city TEXT DEFAULT '',
			state TEXT DEFAULT '',
			zip_code TEXT DEFAULT '',
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT DEFAULT 'system',
			action TEXT NOT NULL,
			module TEXT NOT NULL,
			record_id TEXT NOT NULL,
			summary TEXT,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, t := range tables {
		if _, err := db.Exec(t); err != nil {
			return fmt.Errorf("migration error: %w\nSQL: %s", err, t)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_customers_name ON customers(name)",
		"CREATE INDEX IF NOT EXISTS idx_products_name ON products(name)",
		"CREATE INDEX IF NOT EXISTS idx_products_active ON products(active)",
		"CREATE INDEX IF NOT EXISTS idx_services_active ON services(active)",
		"CREATE INDEX IF NOT EXISTS idx_service_orders_status ON service_orders(status)",
		"CREATE INDEX IF NOT EXISTS idx_service_orders_customer_id ON service_orders(customer_id)",
		"CREATE INDEX IF NOT EXISTS idx_service_order_equipments_order ON service_order_equipments(service_order_id)",
		"CREATE INDEX IF NOT EXISTS idx_service_order_items_order ON service_order_items(service_order_id)",
		"CREATE INDEX IF NOT EXISTS idx_sales_customer_id ON sales(customer_id)",
		"CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_sale_items_sale_id ON sale_items(sale_id)",
		"CREATE INDEX IF NOT EXISTS idx_sale_items_product_id ON sale_items(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_budgets_status ON budgets(status)",
		"CREATE INDEX IF NOT EXISTS idx_budgets_customer_id ON budgets(customer_id)",
		"CREATE INDEX IF NOT EXISTS idx_budget_items_budget_id ON budget_items(budget_id)",
		"CREATE INDEX IF NOT EXISTS idx_financial_records_type ON financial_records(type)",
		"CREATE INDEX IF NOT EXISTS idx_financial_records_sale_id ON financial_records(sale_id)",
		"CREATE INDEX IF NOT EXISTS idx_financial_records_due_date ON financial_records(due_date)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_audit_log_module ON audit_log(module)",
		"CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("index creation: %w\nSQL: %s", err, idx)
		}
	}

	return nil
}

func seedDB() {
	// Always ensure admin user exists
	var userCount int
	db.QueryRow("SELECT COUNT(*) FROM users WHERE email = 'admin@ctrlos.local'").Scan(&userCount)
	if userCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Failed to hash admin password: %v", err)
		} else {
			db.Exec("INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)",
				"Administrator", "admin@ctrlos.local", string(hash), "admin")
		}
	}

	// Seed a default warranty term
	var wtCount int
	db.QueryRow("SELECT COUNT(*) FROM warranty_terms").Scan(&wtCount)
	if wtCount == 0 {
		db.Exec("INSERT INTO warranty_terms (id, name, duration_days, terms) VALUES (?, ?, ?, ?)",
			"WT-"+time.Now().Format("2006")+"-0001", "Standard repair warranty", 90,
			"Covers the repaired defect and replaced parts. Misuse and liquid damage excluded.")
	}
}

// nextID generates sequential business ids of the form PREFIX-YYYY-NNNN.
func nextID(prefix string, table string, digits int) string {
	year := time.Now().Format("2006")
	pattern := prefix + "-" + year + "-%"
	var maxID sql.NullString
	db.QueryRow("SELECT id FROM "+table+" WHERE id LIKE ? ORDER BY id DESC LIMIT 1", pattern).Scan(&maxID)

	next := 1
	if maxID.Valid {
		parts := strings.Split(maxID.String, "-")
		if len(parts) >= 3 {
			if n, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
				next = n + 1
			}
		}
	}
	return fmt.Sprintf("%s-%s-%0*d", prefix, year, digits, next)
}

func ns(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func sp(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
