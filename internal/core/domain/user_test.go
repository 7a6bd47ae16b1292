package domain

import "testing"

func TestNewUser(t *testing.T) {
	u := NewUser("  Alice@Example.COM ", "hash")
	if u.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	if u.PasswordHash != "hash" {
		t.Fatalf("expected hash to be kept, got %q", u.PasswordHash)
	}
	if u.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be set")
	}
}
