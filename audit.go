package main

import (
	"log"
	"net/http"

	"ctrlos/internal/ws"
)

// logAudit records a change in the audit trail and pushes a live
// event to connected clients. Failures are logged, never surfaced.
func logAudit(r *http.Request, action, module, recordID, summary string) {
	username := getUsername(r)
	_, err := db.Exec(
		"INSERT INTO audit_log (username, action, module, record_id, summary) VALUES (?, ?, ?, ?, ?)",
		username, action, module, recordID, summary)
	if err != nil {
		log.Printf("Audit log failed (%s %s %s): %v", action, module, recordID, err)
	}

	if wsHub != nil {
		wsHub.Broadcast(ws.Event{Type: module, ID: recordID, Action: action})
	}
}

func getUsername(r *http.Request) string {
	if r == nil {
		return "system"
	}
	if u, ok := r.Context().Value(ctxUserKey).(User); ok && u.Email != "" {
		return u.Email
	}
	return "system"
}
