package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"not found", NotFound("task with ID %d not found", 7), http.StatusNotFound},
		{"forbidden", Forbidden("not a member"), http.StatusForbidden},
		{"unauthorized", Unauthorized("missing token"), http.StatusUnauthorized},
		{"validation", Validation("invalid input"), http.StatusBadRequest},
		{"conflict", Conflict("duplicate name"), http.StatusConflict},
		{"internal", Internal("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.StatusCode(); got != tt.want {
				t.Fatalf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNotFoundMessageFormatting(t *testing.T) {
	err := NotFound("%s with ID %d not found", "Project", 42)
	if err.Error() != "Project with ID 42 not found" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestFromUnwrapsAppErrors(t *testing.T) {
	orig := Forbidden("nope")
	wrapped := fmt.Errorf("handling request: %w", orig)

	got := From(wrapped)
	if got.Kind != KindForbidden || got.Message != "nope" {
		t.Fatalf("From() = %+v, want original forbidden error", got)
	}
}

func TestFromHidesUnknownErrors(t *testing.T) {
	got := From(errors.New("pq: connection refused"))
	if got.Kind != KindInternal {
		t.Fatalf("kind = %v, want internal", got.Kind)
	}
	if got.Message != "internal server error" {
		t.Fatalf("internal cause leaked: %q", got.Message)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(NotFound("gone")) {
		t.Fatal("expected IsNotFound to be true for NotFound errors")
	}
	if IsNotFound(Conflict("dup")) {
		t.Fatal("expected IsNotFound to be false for Conflict errors")
	}
	if IsNotFound(errors.New("plain")) {
		t.Fatal("expected IsNotFound to be false for plain errors")
	}
}
