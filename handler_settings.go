package main

import (
	"net/http"
	"time"
)

const settingsCols = "id,COALESCE(company_name,''),COALESCE(trade_name,''),COALESCE(document,''),COALESCE(email,''),COALESCE(phone,''),COALESCE(address,''),COALESCE(city,''),COALESCE(state,''),COALESCE(zip_code,''),updated_at"

// handleGetSettings returns the singleton company profile, creating
// the row on first access.
func handleGetSettings(w http.ResponseWriter, r *http.Request) {
	db.Exec("INSERT OR IGNORE INTO system_settings (id) VALUES (1)")

	var s SystemSettings
	err := db.QueryRow("SELECT "+settingsCols+" FROM system_settings WHERE id=1").
		Scan(&s.ID, &s.CompanyName, &s.TradeName, &s.Document, &s.Email, &s.Phone, &s.Address, &s.City, &s.State, &s.ZipCode, &s.UpdatedAt)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	jsonResp(w, s)
}

func handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var s SystemSettings
	if err := decodeBody(r, &s); err != nil { jsonErr(w, "invalid body", 400); return }

	v := &ValidationErrors{}
	validateEmail(v, "email", s.Email)
	if v.HasErrors() { jsonValidationErr(w, v); return }

	db.Exec("INSERT OR IGNORE INTO system_settings (id) VALUES (1)")
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := db.Exec(`UPDATE system_settings SET company_name=?,trade_name=?,document=?,email=?,phone=?,address=?,city=?,state=?,zip_code=?,updated_at=? WHERE id=1`,
		s.CompanyName, s.TradeName, s.Document, s.Email, s.Phone, s.Address, s.City, s.State, s.ZipCode, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	s.ID = 1
	s.UpdatedAt = now
	logAudit(r, "update", "settings", "1", "Updated company settings")
	jsonResp(w, s)
}
