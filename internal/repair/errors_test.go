package repair

import (
	"errors"
	"strings"
	"testing"
)

func TestSizeMismatchError(t *testing.T) {
	err := &SizeMismatchError{Expected: 100, Actual: 42}
	if got := err.Error(); got != "size mismatch: expected 100, got 42" {
		t.Errorf("Error() = %q", got)
	}
}

func TestHashMismatchError(t *testing.T) {
	err := &HashMismatchError{Expected: "abc", Actual: "def"}
	if got := err.Error(); got != "hash mismatch: expected abc, got def" {
		t.Errorf("Error() = %q", got)
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &TransportError{URL: "https://example.com/a.exe", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should see through TransportError")
	}
	if !strings.Contains(err.Error(), "https://example.com/a.exe") {
		t.Errorf("Error() = %q, want the URL included", err.Error())
	}
}

func TestExhaustedRetriesError(t *testing.T) {
	inner := &TransportError{URL: "https://example.com/a.exe", Err: errors.New("timeout")}
	err := &ExhaustedRetriesError{Name: "7-Zip", Attempts: 3, LastErr: inner}

	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Errorf("Error() = %q", err.Error())
	}

	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Error("errors.As should find the wrapped TransportError")
	}

	bare := &ExhaustedRetriesError{Name: "App", Attempts: 2}
	if got := bare.Error(); got != "App: failed after 2 attempts" {
		t.Errorf("Error() without cause = %q", got)
	}
}
