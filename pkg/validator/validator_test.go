package validator

import (
	"errors"
	"strings"
	"testing"

	playground "github.com/go-playground/validator/v10"
)

type sample struct {
	Email string `validate:"required,email"`
	Role  string `validate:"required,oneof=teacher student"`
	Name  string `validate:"min=2,max=10"`
}

func TestFormatValidationError(t *testing.T) {
	v := playground.New()

	err := v.Struct(sample{Email: "not-an-email", Role: "admin", Name: "x"})
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	msg := FormatValidationError(err)
	if !strings.Contains(msg, "Email must be a valid email address") {
		t.Errorf("missing email message: %s", msg)
	}
	if !strings.Contains(msg, "Role must be one of: teacher student") {
		t.Errorf("missing oneof message: %s", msg)
	}
	if !strings.Contains(msg, "Name must be at least 2 characters") {
		t.Errorf("missing min message: %s", msg)
	}
}

func TestFormatValidationErrorRequired(t *testing.T) {
	v := playground.New()

	err := v.Struct(sample{Name: "ok"})
	msg := FormatValidationError(err)
	if !strings.Contains(msg, "Email is required") {
		t.Errorf("missing required message: %s", msg)
	}
}

func TestFormatValidationErrorPassthrough(t *testing.T) {
	plain := errors.New("some other error")
	if got := FormatValidationError(plain); got != "some other error" {
		t.Errorf("non-validation errors should pass through, got %q", got)
	}
}
