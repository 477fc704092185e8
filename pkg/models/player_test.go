package models

import "testing"

func TestNewAnonymous(t *testing.T) {
	p, err := NewAnonymous("alice_01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "anon-alice_01" || p.Username != "alice_01" || !p.IsActive() {
		t.Fatalf("unexpected player %+v", p)
	}
	if p.StoreNamespace() != "player:anon-alice_01:" {
		t.Fatalf("unexpected namespace %q", p.StoreNamespace())
	}

	for _, bad := range []string{"", "a b", "x:y", "0123456789012345678901234567890123"} {
		if _, err := NewAnonymous(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestActivationStates(t *testing.T) {
	tests := []struct {
		activated int64
		active    bool
		banned    bool
	}{
		{1700000000, true, false},
		{0, false, false},
		{-1, false, true},
	}
	for _, tt := range tests {
		p := &Player{Activated: tt.activated}
		if p.IsActive() != tt.active || p.IsBanned() != tt.banned {
			t.Errorf("activated=%d: active=%v banned=%v", tt.activated, p.IsActive(), p.IsBanned())
		}
	}
}
