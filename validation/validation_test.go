package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/linkvault/errors"
)

type loginInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=1024"`
}

type noJSONTags struct {
	AccountName string `validate:"required"`
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(loginInput{Email: "jane@example.com", Password: "pw"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	err := Validate(loginInput{Email: "not-an-email"})
	if err == nil {
		t.Fatal("expected error")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT AppError, got %v", err)
	}
	if !strings.Contains(appErr.Message, "email: must be a valid email address") {
		t.Errorf("unexpected message %q", appErr.Message)
	}
	if !strings.Contains(appErr.Message, "password: is required") {
		t.Errorf("unexpected message %q", appErr.Message)
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 2 {
		t.Errorf("expected two field errors, got %v", appErr.Details["fields"])
	}
}

func TestValidate_DoesNotEchoValue(t *testing.T) {
	secret := strings.Repeat("s3cr3t", 200)
	err := Validate(loginInput{Email: "jane@example.com", Password: secret})
	if err == nil {
		t.Fatal("expected max length error")
	}
	if strings.Contains(err.Error(), "s3cr3t") {
		t.Error("error message must not contain the rejected value")
	}
}

func TestValidate_SnakeCaseFallback(t *testing.T) {
	err := Validate(noJSONTags{})
	if err == nil || !strings.Contains(err.Error(), "account_name: is required") {
		t.Errorf("expected snake_case field name, got %v", err)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{"AccountID": "account_i_d", "Email": "email", "maxConcurrent": "max_concurrent"}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
