package document

import (
	"errors"
	"testing"
	"time"
)

func TestValidControlNumber(t *testing.T) {
	good := []string{"ECOM-2025-0001", "ECOM-1999-9999", "ECOM-0000-0000"}
	bad := []string{"", "ECOM-25-0001", "ecom-2025-0001", "ECOM-2025-001", "ECOM-2025-00011", "XECOM-2025-0001", "ECOM-2025-000A"}
	for _, s := range good {
		if !ValidControlNumber(s) {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range bad {
		if ValidControlNumber(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestDocumentValidate(t *testing.T) {
	now := time.Date(2025, 9, 6, 12, 0, 0, 0, time.UTC)
	base := Document{ControlNumber: "ECOM-2025-0001", Title: "T"}.WithDefaults()

	tests := []struct {
		name string
		mut  func(d *Document)
		want error
	}{
		{"ok", func(d *Document) {}, nil},
		{"bad control", func(d *Document) { d.ControlNumber = "ECOM-1" }, ErrInvalidControlNumber},
		{"blank title", func(d *Document) { d.Title = "  " }, ErrTitleRequired},
		{"within skew", func(d *Document) { d.CreatedAt = now.Add(30 * time.Second).UnixMilli() }, nil},
		{"future", func(d *Document) { d.CreatedAt = now.Add(2 * time.Minute).UnixMilli() }, ErrCreatedAtInFuture},
		{"status", func(d *Document) { d.Status = "Nope" }, ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			tt.mut(&d)
			err := d.Validate(now)
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIsStale(t *testing.T) {
	now := time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC)
	d := Document{CreatedAt: now.AddDate(-11, 0, 0).UnixMilli()}
	if !d.IsStale(now) {
		t.Fatal("11 years old should be stale")
	}
	d.CreatedAt = now.AddDate(-1, 0, 0).UnixMilli()
	if d.IsStale(now) {
		t.Fatal("1 year old should not be stale")
	}
}
