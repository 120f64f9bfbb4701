package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	err := Wrap(stdErrors.New("boom"), "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	with := ErrDeviceMismatch.WithInternal(stdErrors.New("bound elsewhere"))

	if with == ErrDeviceMismatch {
		t.Fatal("expected WithInternal to return a copy")
	}
	if ErrDeviceMismatch.Internal != nil {
		t.Fatal("expected sentinel to remain unchanged")
	}
	if !stdErrors.Is(with, with.Internal) {
		t.Fatal("expected internal error to be reachable through errors.Is")
	}
}

func TestFromErrorDefaultsToRetryable(t *testing.T) {
	if out := FromError(ErrInvitationNotFound); out != ErrInvitationNotFound {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	out := FromError(stdErrors.New("connection reset"))
	if out.Code != ErrServiceUnavailable.Code {
		t.Fatalf("expected %s, got %s", ErrServiceUnavailable.Code, out.Code)
	}
	if !out.Retryable() {
		t.Fatal("expected unknown failures to be retryable")
	}
	if ErrDeviceMismatch.Retryable() {
		t.Fatal("device mismatch must not be retryable")
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}
