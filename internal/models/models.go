package models

// APIResponse is the standard JSON envelope for all API responses.
type APIResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total int `json:"total,omitempty"`
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

type Customer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Document  string `json:"document"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	SKU         string  `json:"sku"`
	CostPrice   float64 `json:"cost_price"`
	SalePrice   float64 `json:"sale_price"`
	StockQty    int     `json:"stock_qty"`
	MinStock    int     `json:"min_stock"`
	Active      int     `json:"active"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"duration_minutes"`
	Active          int     `json:"active"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type WarrantyTerm struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DurationDays int    `json:"duration_days"`
	Terms        string `json:"terms"`
	Active       int    `json:"active"`
	CreatedAt    string `json:"created_at"`
}

type ServiceOrder struct {
	ID             string      `json:"id"`
	CustomerID     string      `json:"customer_id"`
	Status         string      `json:"status"`
	Priority       string      `json:"priority"`
	WarrantyTermID string      `json:"warranty_term_id"`
	Total          float64     `json:"total"`
	Notes          string      `json:"notes"`
	CreatedAt      string      `json:"created_at"`
	UpdatedAt      string      `json:"updated_at"`
	DeliveredAt    *string     `json:"delivered_at"`
	Equipments     []Equipment `json:"equipments,omitempty"`
	Items          []LineItem  `json:"items,omitempty"`
}

// Equipment is one device attached to a service order.
type Equipment struct {
	ID             int    `json:"id"`
	ServiceOrderID string `json:"service_order_id"`
	Device         string `json:"device"`
	SerialNumber   string `json:"serial_number"`
	ReportedIssue  string `json:"reported_issue"`
	Diagnosis      string `json:"diagnosis"`
	Solution       string `json:"solution"`
}

// LineItem is a sale, budget, or service-order line. It references a
// product or a service (never both), or neither for free-text lines.
type LineItem struct {
	ID          int     `json:"id"`
	ParentID    string  `json:"parent_id"`
	ProductID   string  `json:"product_id"`
	ServiceID   string  `json:"service_id"`
	Description string  `json:"description"`
	Qty         int     `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}

type Sale struct {
	ID            string     `json:"id"`
	CustomerID    string     `json:"customer_id"`
	Seller        string     `json:"seller"`
	PaymentMethod string     `json:"payment_method"`
	Paid          int        `json:"paid"`
	Total         float64    `json:"total"`
	Notes         string     `json:"notes"`
	CreatedAt     string     `json:"created_at"`
	Items         []LineItem `json:"items,omitempty"`
}

type Budget struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id"`
	Status     string     `json:"status"`
	ValidUntil string     `json:"valid_until"`
	Total      float64    `json:"total"`
	Notes      string     `json:"notes"`
	CreatedAt  string     `json:"created_at"`
	UpdatedAt  string     `json:"updated_at"`
	Items      []LineItem `json:"items,omitempty"`
}

type FinancialRecord struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Category       string  `json:"category"`
	Description    string  `json:"description"`
	Amount         float64 `json:"amount"`
	PaymentMethod  string  `json:"payment_method"`
	Paid           int     `json:"paid"`
	DueDate        string  `json:"due_date"`
	PaidAt         *string `json:"paid_at"`
	CustomerID     string  `json:"customer_id"`
	SaleID         string  `json:"sale_id"`
	ServiceOrderID string  `json:"service_order_id"`
	CreatedAt      string  `json:"created_at"`
}

type User struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	Active    int     `json:"active"`
	CreatedAt string  `json:"created_at"`
	LastLogin *string `json:"last_login"`
}

// SystemSettings is the singleton company profile row (id is always 1).
type SystemSettings struct {
	ID          int    `json:"id"`
	CompanyName string `json:"company_name"`
	TradeName   string `json:"trade_name"`
	Document    string `json:"document"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zip_code"`
	UpdatedAt   string `json:"updated_at"`
}

type DashboardData struct {
	OpenServiceOrders int     `json:"open_service_orders"`
	LowStockProducts  int     `json:"low_stock_products"`
	UnpaidFinancials  int     `json:"unpaid_financials"`
	SalesToday        int     `json:"sales_today"`
	PendingBudgets    int     `json:"pending_budgets"`
	RevenueThisMonth  float64 `json:"revenue_this_month"`
}

// MonthBucket is one month in the trailing sales report.
type MonthBucket struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// ProductRank is one row of the top-sellers report.
type ProductRank struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	QtySold   int    `json:"qty_sold"`
}

// Report is the payload of GET /api/v1/reports.
type Report struct {
	SalesByMonth    []MonthBucket      `json:"sales_by_month"`
	OrdersByStatus  map[string]int     `json:"orders_by_status"`
	TopProducts     []ProductRank      `json:"top_products"`
	FinancialTotals map[string]float64 `json:"financial_totals"`
}

// AuditEntry is a single audit log record.
type AuditEntry struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Module    string `json:"module"`
	RecordID  string `json:"record_id"`
	Summary   string `json:"summary"`
	CreatedAt string `json:"created_at"`
}
