package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("cancel booking: %w", Conflict("booking already cancelled", "b1"))
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict, got %s", KindOf(err))
	}
	if !errors.Is(err, &Error{Kind: KindConflict}) {
		t.Fatal("errors.Is should match by kind")
	}
	if errors.Is(err, &Error{Kind: KindNotFound}) {
		t.Fatal("errors.Is must not match another kind")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatal("unknown errors are internal")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation: http.StatusBadRequest,
		KindNotFound:   http.StatusNotFound,
		KindConflict:   http.StatusConflict,
		KindForbidden:  http.StatusForbidden,
		KindTransient:  http.StatusServiceUnavailable,
		KindInternal:   http.StatusInternalServerError,
	}
	for k, want := range cases {
		if got := HTTPStatus(k); got != want {
			t.Fatalf("%s: got %d want %d", k, got, want)
		}
	}
}

func TestWithConflictCopies(t *testing.T) {
	base := Conflict("slot overlaps an existing slot", "")
	withID := base.WithConflict("s9")
	if base.ConflictID != "" || withID.ConflictID != "s9" {
		t.Fatal("WithConflict must not mutate the receiver")
	}
	inner := errors.New("40001")
	if !errors.Is(Transient(inner), inner) {
		t.Fatal("Transient must unwrap to the cause")
	}
}
