package utils

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	password := "secret"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !CheckPassword(password, hash) {
		t.Errorf("Expected password check to pass")
	}

	if CheckPassword("wrongpassword", hash) {
		t.Errorf("Expected password check to fail")
	}
}

func TestGenerateSessionToken(t *testing.T) {
	first, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.HasPrefix(first, "user_") {
		t.Errorf("Expected user_ prefix, got %q", first)
	}
	if first == second {
		t.Errorf("Expected distinct tokens")
	}
}

func TestTokenFromCookie(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"single cookie", "token=abc123", "abc123"},
		{"among others", "theme=dark; token=abc123; lang=tr", "abc123"},
		{"with spaces", "  token=abc123 ;", "abc123"},
		{"missing", "theme=dark; lang=tr", ""},
		{"empty header", "", ""},
		{"empty value", "token=", ""},
		{"name is substring", "usertoken=zzz; token=abc123", "abc123"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TokenFromCookie(tc.header, "token"); got != tc.want {
				t.Errorf("TokenFromCookie(%q) = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}
