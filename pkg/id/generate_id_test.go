package id

import (
	"encoding/hex"
	"regexp"
	"testing"
)

var (
	tokenChars = regexp.MustCompile(`^[a-f0-9]{32}$`)
	ctrlShape  = regexp.MustCompile(`^ECOM-2025-\d{4}$`)
)

func TestNewID32_FormatAndDecode(t *testing.T) {
	got := NewID32()

	if !tokenChars.MatchString(got) {
		t.Fatalf("not 32-char lowercase hex: %q", got)
	}
	b, err := hex.DecodeString(got)
	if err != nil {
		t.Fatalf("hex.DecodeString error: %v", err)
	}
	if len(b) != 16 {
		t.Fatalf("decoded bytes = %d, want 16", len(b))
	}
}

func TestNewID32_Uniqueness(t *testing.T) {
	const n = 200
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := NewID32()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id after %d iterations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewControlNumber_Range(t *testing.T) {
	for i := 0; i < 500; i++ {
		got := NewControlNumber(2025)
		if !ctrlShape.MatchString(got) {
			t.Fatalf("bad control number %q", got)
		}
		if got < "ECOM-2025-1000" || got > "ECOM-2025-9999" {
			t.Fatalf("sequence out of range: %q", got)
		}
	}
}
