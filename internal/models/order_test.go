package models

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCompleted, true},
		{OrderStatusPending, OrderStatusCanceled, true},
		{OrderStatusProcessing, OrderStatusCompleted, true},
		{OrderStatusProcessing, OrderStatusCanceled, true},
		{OrderStatusProcessing, OrderStatusPending, false},
		{OrderStatusCompleted, OrderStatusPending, false},
		{OrderStatusCompleted, OrderStatusProcessing, false},
		{OrderStatusCompleted, OrderStatusCanceled, false},
		{OrderStatusCanceled, OrderStatusPending, false},
		{OrderStatusCanceled, OrderStatusCompleted, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestValidOrderStatus(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCanceled} {
		if !ValidOrderStatus(status) {
			t.Errorf("ValidOrderStatus(%s) = false", status)
		}
	}
	for _, status := range []OrderStatus{"", "shipped", "PENDING"} {
		if ValidOrderStatus(status) {
			t.Errorf("ValidOrderStatus(%q) = true", status)
		}
	}
}

func TestIsAdmin(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	if !admin.IsAdmin() {
		t.Fatal("admin role not recognized")
	}
	regular := &User{Role: RoleUser}
	if regular.IsAdmin() {
		t.Fatal("user role treated as admin")
	}
	var nilUser *User
	if nilUser.IsAdmin() {
		t.Fatal("nil user treated as admin")
	}
}
