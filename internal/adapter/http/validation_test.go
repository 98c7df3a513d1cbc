package http

import (
	"errors"
	"testing"
)

func TestCtrlnoValidation(t *testing.T) {
	type P struct {
		ControlNumber string `json:"controlNumber" validate:"ctrlno"`
	}
	cv := NewValidator()

	for _, s := range []string{"ECOM-2025-0001", "ECOM-1999-9999"} {
		if err := cv.Validate(P{ControlNumber: s}); err != nil {
			t.Fatalf("expected valid control number %q, got err: %v", s, err)
		}
	}
	for _, s := range []string{
		"",
		"ecom-2025-0001",  // lowercase prefix
		"ECOM-25-0001",    // short year
		"ECOM-2025-001",   // short sequence
		"ECOM-2025-00011", // long sequence
		"DOC-2025-0001",   // wrong prefix
		" ECOM-2025-0001", // leading space
	} {
		err := cv.Validate(P{ControlNumber: s})
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		if !containsFieldMsg(ToFieldErrors(err), "controlNumber", "ECOM-YYYY-NNNN") {
			t.Fatalf("expected ctrlno message for %q, got %+v", s, ToFieldErrors(err))
		}
	}
}

func TestRequestStructMessages(t *testing.T) {
	cv := NewValidator()

	fe := ToFieldErrors(cv.Validate(registerReq{Username: "bad name", Password: ""}))
	if !containsFieldMsg(fe, "username", "whitespace") {
		t.Fatalf("missing username message: %+v", fe)
	}
	if !containsFieldMsg(fe, "password", "is required") {
		t.Fatalf("missing password message: %+v", fe)
	}

	fe = ToFieldErrors(cv.Validate(updateRoleReq{Role: "root"}))
	if !containsFieldMsg(fe, "role", "one of: user, admin") {
		t.Fatalf("missing oneof message: %+v", fe)
	}

	if err := cv.Validate(replaceDocsReq{}); err == nil {
		t.Fatal("nil docs should fail required")
	}

	fe = ToFieldErrors(cv.Validate(docKeyReq{Control: "ECOM-2025-1"}))
	if !containsFieldMsg(fe, "control", "ECOM-YYYY-NNNN") {
		t.Fatalf("missing ctrlno message on path key: %+v", fe)
	}
}

func TestToFieldErrors_NonValidation(t *testing.T) {
	err := errors.New("boom")
	fe := ToFieldErrors(err)
	if len(fe) != 1 {
		t.Fatalf("expected 1 field error, got %d", len(fe))
	}
	if fe[0].Field != "_" || fe[0].Message != "boom" {
		t.Fatalf("unexpected mapping: %+v", fe[0])
	}
}
