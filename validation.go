package main

import (
	"fmt"
	"strings"

	"ctrlos/internal/response"
)

var (
	validOrderStatuses  = []string{"OPENED", "IN_QUEUE", "IN_PROGRESS", "AWAITING_PARTS", "READY", "DELIVERED", "CANCELLED", "WARRANTY_RETURN"}
	validPriorities     = []string{"LOW", "NORMAL", "HIGH", "URGENT"}
	validBudgetStatuses = []string{"PENDING", "APPROVED", "REJECTED", "EXPIRED", "CONVERTED"}
	validRecordTypes    = []string{"REVENUE", "EXPENSE", "INVESTMENT", "LOAN"}
	validPaymentMethods = []string{"CASH", "CREDIT_CARD", "DEBIT_CARD", "PIX", "TRANSFER", "OTHER"}
	validRoles          = []string{"admin", "user", "readonly"}
)

// orderTransitions maps each service order status to the statuses it
// may move to. Terminal statuses have no outgoing edges except the
// warranty return path from DELIVERED.
var orderTransitions = map[string][]string{
	"OPENED":          {"IN_QUEUE", "IN_PROGRESS", "CANCELLED"},
	"IN_QUEUE":        {"IN_PROGRESS", "CANCELLED"},
	"IN_PROGRESS":     {"AWAITING_PARTS", "READY", "CANCELLED"},
	"AWAITING_PARTS":  {"IN_PROGRESS", "CANCELLED"},
	"READY":           {"DELIVERED", "IN_PROGRESS", "CANCELLED"},
	"DELIVERED":       {"WARRANTY_RETURN"},
	"CANCELLED":       {},
	"WARRANTY_RETURN": {"IN_PROGRESS", "CANCELLED"},
}

func canTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidationErrors accumulates per-field problems so a request can be
// rejected with the whole breakdown at once.
type ValidationErrors struct {
	Fields []response.FieldError
}

func (v *ValidationErrors) Add(field, msg string) {
	v.Fields = append(v.Fields, response.FieldError{Field: field, Message: msg})
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Fields) > 0
}

func (v *ValidationErrors) Error() string {
	msgs := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return strings.Join(msgs, "; ")
}

func requireField(v *ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "is required")
	}
}

func validateEnum(v *ValidationErrors, field, value string, allowed []string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.Add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

func validateEmail(v *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	at := strings.Index(value, "@")
	if at < 1 || at == len(value)-1 || !strings.Contains(value[at:], ".") {
		v.Add(field, "must be a valid email address")
	}
}

func validatePositive(v *ValidationErrors, field string, value float64) {
	if value <= 0 {
		v.Add(field, "must be greater than zero")
	}
}

func validateNonNegative(v *ValidationErrors, field string, value float64) {
	if value < 0 {
		v.Add(field, "must not be negative")
	}
}

func validateLineItems(v *ValidationErrors, prefix string, items []LineItem) {
	if len(items) == 0 {
		v.Add(prefix, "at least one item is required")
		return
	}
	for i, it := range items {
		f := fmt.Sprintf("%s[%d]", prefix, i)
		if it.ProductID == "" && it.ServiceID == "" && strings.TrimSpace(it.Description) == "" {
			v.Add(f, "needs a product_id, service_id or description")
		}
		if it.Qty <= 0 {
			v.Add(f+".qty", "must be greater than zero")
		}
		if it.UnitPrice < 0 {
			v.Add(f+".unit_price", "must not be negative")
		}
		if it.Discount < 0 {
			v.Add(f+".discount", "must not be negative")
		}
	}
}

// lineTotal computes qty*unit_price-discount, floored at zero.
func lineTotal(it LineItem) float64 {
	t := float64(it.Qty)*it.UnitPrice - it.Discount
	if t < 0 {
		return 0
	}
	return t
}

func customerExists(id string) bool {
	var n int
	db.QueryRow("SELECT COUNT(*) FROM customers WHERE id = ?", id).Scan(&n)
	return n > 0
}
