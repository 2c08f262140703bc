package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestNewUsesRegisteredMessage(t *testing.T) {
	err := New(CodeActionNotFound, "")
	if err.Message() != "action not found" {
		t.Fatalf("expected registry default message, got %q", err.Message())
	}
	if err.Code() != CodeActionNotFound {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := Wrap(CodeTransportFailure, cause, "send failed")

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	if got := err.Error(); got != "[TRANSPORT_FAILURE] send failed: connection reset" {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	inner := New(CodeVerificationFailure, "rpc unreachable")
	outer := fmt.Errorf("pipeline: %w", inner)

	if !stdErrors.Is(outer, New(CodeVerificationFailure, "")) {
		t.Fatalf("expected code match through wrap layers")
	}
	if stdErrors.Is(outer, New(CodeTimeout, "")) {
		t.Fatalf("different codes must not match")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(CodeEncodingFailure, "bad tuple")); got != CodeEncodingFailure {
		t.Fatalf("unexpected code %s", got)
	}
	if got := CodeOf(stdErrors.New("plain")); got != CodeUnknown {
		t.Fatalf("expected UNKNOWN for untyped error, got %s", got)
	}
	if got := CodeOf(fmt.Errorf("outer: %w", New(CodeStorageFailure, ""))); got != CodeStorageFailure {
		t.Fatalf("expected code through wrapping, got %s", got)
	}
}

func TestAttributesDriveBehaviour(t *testing.T) {
	if !New(CodeTransportFailure, "").Retryable() {
		t.Fatalf("transport failures should be retryable")
	}
	if New(CodeActionNotFound, "").ShouldAlert() {
		t.Fatalf("action-not-found should not alert")
	}
	if New(CodeStorageFailure, "").Severity() != SeverityCritical {
		t.Fatalf("storage failures should be critical")
	}
}

func TestWithMetadata(t *testing.T) {
	err := New(CodeChainReadFailure, "balanceOf failed",
		WithMetadata("collection", "0xabc"), WithMetadata("method", "balanceOf"))

	meta := err.Metadata()
	if meta["collection"] != "0xabc" || meta["method"] != "balanceOf" {
		t.Fatalf("unexpected metadata: %v", meta)
	}
	// The accessor returns a copy.
	meta["collection"] = "mutated"
	if err.Metadata()["collection"] != "0xabc" {
		t.Fatalf("metadata must not be mutable from outside")
	}
}

func TestRegisterCustomCode(t *testing.T) {
	const code = Code("TEST_CUSTOM")
	Register(code, Attributes{Message: "custom", Severity: SeverityWarning, Retryable: true})

	if AttributesOf(code).Message != "custom" {
		t.Fatalf("expected registered attributes")
	}
	if !New(code, "").Retryable() {
		t.Fatalf("expected registered retryable flag")
	}
}
