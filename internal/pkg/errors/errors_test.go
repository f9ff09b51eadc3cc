package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "invalid input")

	if err.Code != CodeValidation {
		t.Errorf("expected code=%s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "invalid input" {
		t.Errorf("expected message='invalid input', got %s", err.Message)
	}
	if len(err.Stack) == 0 {
		t.Error("expected stack trace to be captured")
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "simple error",
			err:      New(CodeValidation, "invalid"),
			contains: []string{"VALIDATION_ERROR", "invalid"},
		},
		{
			name: "error with op",
			err: &Error{
				Code:    CodeInternal,
				Message: "db failed",
				Op:      "job.update",
			},
			contains: []string{"job.update", "INTERNAL_ERROR", "db failed"},
		},
		{
			name: "error with underlying",
			err: &Error{
				Code:    CodeInternal,
				Message: "wrapper",
				Err:     fmt.Errorf("underlying error"),
			},
			contains: []string{"wrapper", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			str := tt.err.Error()
			for _, c := range tt.contains {
				if !strings.Contains(str, c) {
					t.Errorf("expected error string to contain %q, got: %s", c, str)
				}
			}
		})
	}
}

func TestWrap(t *testing.T) {
	original := fmt.Errorf("original error")
	wrapped := Wrap(original, "poller.handle", "status poll failed")

	if wrapped == nil {
		t.Fatal("expected wrapped error to be non-nil")
	}
	if wrapped.Code != CodeInternal {
		t.Errorf("expected code=%s, got %s", CodeInternal, wrapped.Code)
	}
	if wrapped.Op != "poller.handle" {
		t.Errorf("expected op='poller.handle', got %s", wrapped.Op)
	}
	if errors.Unwrap(wrapped) != original {
		t.Error("Unwrap should return original error")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "op", "msg") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapPreservesCode(t *testing.T) {
	inner := New(CodeUnavailable, "provider down")
	wrapped := Wrap(inner, "publisher.publish", "publish aborted")

	if wrapped.Code != CodeUnavailable {
		t.Errorf("expected preserved code=%s, got %s", CodeUnavailable, wrapped.Code)
	}
}

func TestWrapWithCode(t *testing.T) {
	wrapped := WrapWithCode(fmt.Errorf("boom"), CodeTimeout, "render.status", "poll timed out")

	if wrapped.Code != CodeTimeout {
		t.Errorf("expected code=%s, got %s", CodeTimeout, wrapped.Code)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, 400},
		{CodeBadRequest, 400},
		{CodeNotFound, 404},
		{CodeConflict, 409},
		{CodeUnavailable, 503},
		{CodeTimeout, 504},
		{CodeInternal, 500},
	}

	for _, tt := range tests {
		if got := New(tt.code, "x").HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(CodeNotFound, "missing")); got != CodeNotFound {
		t.Errorf("expected %s, got %s", CodeNotFound, got)
	}
	if got := GetCode(fmt.Errorf("plain")); got != CodeInternal {
		t.Errorf("expected fallback %s, got %s", CodeInternal, got)
	}
}

func TestIsHelpers(t *testing.T) {
	if !IsNotFound(NotFound("job", "job_1")) {
		t.Error("expected IsNotFound to match")
	}
	if !IsValidation(Validation("bad slot")) {
		t.Error("expected IsValidation to match")
	}
	if IsNotFound(Validation("bad slot")) {
		t.Error("expected IsNotFound to not match validation error")
	}
}

func TestErrorIsByCode(t *testing.T) {
	a := New(CodeConflict, "one")
	b := New(CodeConflict, "two")

	if !errors.Is(a, b) {
		t.Error("errors with same code should match via errors.Is")
	}
}

func TestFields(t *testing.T) {
	err := NotFound("script", "scr_9")

	fields := GetFields(err)
	if fields["resource"] != "script" || fields["id"] != "scr_9" {
		t.Errorf("unexpected fields: %v", fields)
	}
}
