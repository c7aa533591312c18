package service

import (
	"errors"
	"fmt"
	"testing"
)

func TestLifecycleError_Matching(t *testing.T) {
	cause := errors.New("db down")
	err := fmt.Errorf("wrapped: %w", internalError("Server error.", cause))

	if !errors.Is(err, ErrInternal) {
		t.Error("errors.Is(err, ErrInternal) = false")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = true")
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
	if KindOf(err) != KindInternal {
		t.Errorf("KindOf = %s", KindOf(err))
	}
	if PublicMessage(err) != "Server error." {
		t.Errorf("PublicMessage = %q", PublicMessage(err))
	}
}

func TestKindOf_PlainError(t *testing.T) {
	err := errors.New("boom")
	if KindOf(err) != KindInternal {
		t.Errorf("KindOf = %s, want internal", KindOf(err))
	}
	if PublicMessage(err) != "Internal server error" {
		t.Errorf("PublicMessage leaked %q", PublicMessage(err))
	}
}

func TestAsLifecycle(t *testing.T) {
	nf := notFoundError("missing")
	if got := asLifecycle(nf, "x"); got != nf {
		t.Errorf("asLifecycle changed a lifecycle error: %v", got)
	}
	wrapped := asLifecycle(errors.New("sql: connection reset"), "Error verifying email.")
	if KindOf(wrapped) != KindInternal || PublicMessage(wrapped) != "Error verifying email." {
		t.Errorf("asLifecycle = %v", wrapped)
	}
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		KindValidation:       "validation",
		KindConflict:         "conflict",
		KindNotFound:         "not_found",
		KindUnauthorized:     "unauthorized",
		KindInvalidOrExpired: "invalid_or_expired",
		KindDelivery:         "delivery",
		KindInternal:         "internal",
	}
	for k, want := range tests {
		if k.String() != want {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), want)
		}
	}
}
