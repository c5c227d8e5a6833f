package callable

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestCodeOfUnwrapsWrappedErrors(t *testing.T) {
	err := fmt.Errorf("relay: %w", InvalidArgument("Transcript is required"))
	if got := CodeOf(err); got != CodeInvalidArgument {
		t.Fatalf("unexpected code: %s", got)
	}
	if got := MessageOf(err); got != "Transcript is required" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	err := errors.New("boom")
	if got := CodeOf(err); got != CodeInternal {
		t.Fatalf("unexpected code: %s", got)
	}
	if got := MessageOf(err); got != "internal error" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("metadata server unreachable")
	err := Internal("failed to obtain access token", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable via errors.Is")
	}
	if !strings.Contains(err.Error(), "metadata server unreachable") {
		t.Fatalf("unexpected error string: %q", err.Error())
	}
}

func TestHTTPStatus(t *testing.T) {
	if HTTPStatus(CodeInvalidArgument) != http.StatusBadRequest {
		t.Fatal("invalid argument should map to 400")
	}
	if HTTPStatus(CodeInternal) != http.StatusInternalServerError {
		t.Fatal("internal should map to 500")
	}
}

func TestInternalDoesNotRepeatMatchingCause(t *testing.T) {
	cause := errors.New("Vertex AI error: 500 quota exceeded")
	err := Internal(cause.Error(), cause)
	if got := err.Error(); got != "INTERNAL: Vertex AI error: 500 quota exceeded" {
		t.Fatalf("unexpected error string: %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause must stay reachable")
	}
}
