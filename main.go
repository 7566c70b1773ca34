package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

func main() {
	configPath := flag.String("config", "ctrlos.yml", "Path to config file")
	flag.Parse()

	cfg := loadConfig(*configPath)
	sessionTTL = time.Duration(cfg.SessionTTLMins) * time.Minute

	if err := initDB(cfg.DBPath); err != nil {
		log.Fatalf("Database init failed: %v", err)
	}
	if cfg.SeedOnStart {
		seedDB()
	}
	initWebsocket()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/auth/", handleAuth)
	mux.HandleFunc("/ws", handleWebsocket)
	mux.HandleFunc("/api/v1/", handleAPI)

	// Frontend, when a static build is present.
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "static/index.html")
	})

	handler := logging(jsonContentType(requireAuth(requireRBAC(mux))))

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("ctrlOS listening on %s (db: %s)", addr, cfg.DBPath)
	log.Fatal(http.ListenAndServe(addr, handler))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, map[string]string{"status": "ok"})
}

// handleAPI routes /api/v1/ requests by path segment and method.
func handleAPI(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
	path = strings.TrimSuffix(path, "/")
	parts := strings.Split(path, "/")

	resource := parts[0]
	id := ""
	if len(parts) > 1 {
		id = parts[1]
	}
	action := ""
	if len(parts) > 2 {
		action = parts[2]
	}

	switch {
	case resource == "customers" && id == "":
		listOrCreate(w, r, handleListCustomers, handleCreateCustomer)
	case resource == "customers":
		getUpdateDelete(w, r, id, handleGetCustomer, handleUpdateCustomer, handleDeleteCustomer)

	case resource == "products" && id == "":
		listOrCreate(w, r, handleListProducts, handleCreateProduct)
	case resource == "products":
		getUpdateDelete(w, r, id, handleGetProduct, handleUpdateProduct, handleDeleteProduct)

	case resource == "services" && id == "":
		listOrCreate(w, r, handleListServices, handleCreateService)
	case resource == "services":
		getUpdateDelete(w, r, id, handleGetService, handleUpdateService, handleDeleteService)

	case resource == "warranty-terms" && id == "":
		listOrCreate(w, r, handleListWarrantyTerms, handleCreateWarrantyTerm)
	case resource == "warranty-terms":
		getUpdateDelete(w, r, id, handleGetWarrantyTerm, handleUpdateWarrantyTerm, handleDeleteWarrantyTerm)

	case resource == "service-orders" && id == "":
		listOrCreate(w, r, handleListServiceOrders, handleCreateServiceOrder)
	case resource == "service-orders":
		getUpdateDelete(w, r, id, handleGetServiceOrder, handleUpdateServiceOrder, handleDeleteServiceOrder)

	case resource == "sales" && id == "":
		listOrCreate(w, r, handleListSales, handleCreateSale)
	case resource == "sales":
		switch r.Method {
		case http.MethodGet:
			handleGetSale(w, r, id)
		case http.MethodDelete:
			handleCancelSale(w, r, id)
		default:
			jsonErr(w, "Method not allowed", 405)
		}

	case resource == "budgets" && id != "" && action == "convert" && r.Method == http.MethodPost:
		handleConvertBudget(w, r, id)
	case resource == "budgets" && id == "":
		listOrCreate(w, r, handleListBudgets, handleCreateBudget)
	case resource == "budgets":
		getUpdateDelete(w, r, id, handleGetBudget, handleUpdateBudget, handleDeleteBudget)

	case resource == "financial-records" && id == "":
		listOrCreate(w, r, handleListFinancialRecords, handleCreateFinancialRecord)
	case resource == "financial-records":
		getUpdateDelete(w, r, id, handleGetFinancialRecord, handleUpdateFinancialRecord, handleDeleteFinancialRecord)

	case resource == "users" && id == "":
		listOrCreate(w, r, handleListUsers, handleCreateUser)
	case resource == "users":
		getUpdateDelete(w, r, id, handleGetUser, handleUpdateUser, handleDeleteUser)

	case resource == "settings":
		switch r.Method {
		case http.MethodGet:
			handleGetSettings(w, r)
		case http.MethodPost:
			handleUpdateSettings(w, r)
		default:
			jsonErr(w, "Method not allowed", 405)
		}

	case resource == "dashboard" && r.Method == http.MethodGet:
		handleDashboard(w, r)
	case resource == "reports" && r.Method == http.MethodGet:
		handleReports(w, r)
	case resource == "export" && id != "" && r.Method == http.MethodGet:
		handleExport(w, r, id)
	case resource == "audit" && r.Method == http.MethodGet:
		handleListAudit(w, r)

	default:
		jsonErr(w, "Not found", 404)
	}
}

func listOrCreate(w http.ResponseWriter, r *http.Request,
	list http.HandlerFunc, create http.HandlerFunc) {
	switch r.Method {
	case http.MethodGet:
		list(w, r)
	case http.MethodPost:
		create(w, r)
	default:
		jsonErr(w, "Method not allowed", 405)
	}
}

func getUpdateDelete(w http.ResponseWriter, r *http.Request, id string,
	get, update, del func(http.ResponseWriter, *http.Request, string)) {
	switch r.Method {
	case http.MethodGet:
		get(w, r, id)
	case http.MethodPut, http.MethodPatch:
		update(w, r, id)
	case http.MethodDelete:
		del(w, r, id)
	default:
		jsonErr(w, "Method not allowed", 405)
	}
}
