package main

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{"OPENED", "IN_QUEUE", true},
		{"OPENED", "IN_PROGRESS", true},
		{"OPENED", "DELIVERED", false},
		{"IN_PROGRESS", "READY", true},
		{"READY", "DELIVERED", true},
		{"READY", "IN_PROGRESS", true},
		{"DELIVERED", "WARRANTY_RETURN", true},
		{"DELIVERED", "IN_PROGRESS", false},
		{"CANCELLED", "OPENED", false},
		{"WARRANTY_RETURN", "IN_PROGRESS", true},
		{"IN_QUEUE", "IN_QUEUE", true},
	}
	for _, c := range cases {
		if got := canTransition(c.from, c.to); got != c.ok {
			t.Errorf("canTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestLineTotalFloorsAtZero(t *testing.T) {
	it := LineItem{Qty: 2, UnitPrice: 10, Discount: 5}
	if got := lineTotal(it); got != 15 {
		t.Errorf("Expected 15, got %.2f", got)
	}

	it.Discount = 100
	if got := lineTotal(it); got != 0 {
		t.Errorf("Discount past the line value floors at 0, got %.2f", got)
	}
}

func TestValidateEmail(t *testing.T) {
	for _, bad := range []string{"nope", "@x.com", "a@", "a@nodot"} {
		v := &ValidationErrors{}
		validateEmail(v, "email", bad)
		if !v.HasErrors() {
			t.Errorf("Expected %q rejected", bad)
		}
	}
	for _, good := range []string{"", "a@b.co", "tech@shop.example.com"} {
		v := &ValidationErrors{}
		validateEmail(v, "email", good)
		if v.HasErrors() {
			t.Errorf("Expected %q accepted: %s", good, v.Error())
		}
	}
}

func TestValidateEnum(t *testing.T) {
	v := &ValidationErrors{}
	validateEnum(v, "status", "OPENED", validOrderStatuses)
	if v.HasErrors() {
		t.Errorf("OPENED should pass: %s", v.Error())
	}

	validateEnum(v, "status", "opened", validOrderStatuses)
	if !v.HasErrors() {
		t.Error("Status tokens are case sensitive")
	}
}
