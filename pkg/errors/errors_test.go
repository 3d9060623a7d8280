package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := Wrap(CodeDependency, cause, "gateway call failed")

	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code: %s", err.Code())
	}
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	t.Parallel()

	inner := New(CodeConflict, "pair already exists")
	wrapped := fmt.Errorf("registry: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error in chain")
	}
	if typed.Code() != CodeConflict {
		t.Fatalf("unexpected code: %s", typed.Code())
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestTimeoutMetadataIsRetryable(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(CodeTimeout)
	if !meta.Retryable {
		t.Fatal("timeout should be retryable")
	}
	if meta.HTTPStatus != http.StatusGatewayTimeout {
		t.Fatalf("unexpected status: %d", meta.HTTPStatus)
	}
}

func TestWithDetails(t *testing.T) {
	t.Parallel()

	err := New(CodeValidation, "bad rule").WithDetails(map[string]string{"rule_type": "unknown"})
	details, ok := err.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details type: %T", err.Details())
	}
	if details["rule_type"] != "unknown" {
		t.Fatalf("unexpected details: %v", details)
	}
}
