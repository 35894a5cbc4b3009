package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfTaggedErrors(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Validation("bad input"), KindValidation},
		{NotFound("missing"), KindNotFound},
		{Conflict("duplicate"), KindConflict},
		{Unauthorized("who are you"), KindUnauthorized},
		{Forbidden("not yours"), KindForbidden},
		{Internal("boom", errors.New("cause")), KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestKindOfPlainErrorIsInternal(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Fatalf("KindOf(plain) = %d, want KindInternal", got)
	}
	if got := KindOf(nil); got != KindInternal {
		t.Fatalf("KindOf(nil) = %d, want KindInternal", got)
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := NotFound("license not found")
	wrapped := fmt.Errorf("bind: %w", inner)
	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("KindOf(wrapped) = %d, want KindNotFound", got)
	}
	if got := MessageOf(wrapped); got != "license not found" {
		t.Fatalf("MessageOf(wrapped) = %q", got)
	}
}

func TestMessageOfPlainErrorIsGeneric(t *testing.T) {
	if got := MessageOf(errors.New("sql: connection refused")); got != "internal error" {
		t.Fatalf("MessageOf leaked internals: %q", got)
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal("save failed", cause)
	if got := err.Error(); got != "save failed: disk full" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause not reachable via errors.Is")
	}
}
