package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Run("direct error", func(t *testing.T) {
		err := New(KindNotFound, "post not found")
		if KindOf(err) != KindNotFound {
			t.Errorf("Expected KindNotFound, got %v", KindOf(err))
		}
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := New(KindConflict, "sha mismatch")
		err := fmt.Errorf("updating post: %w", inner)
		if KindOf(err) != KindConflict {
			t.Errorf("Expected KindConflict through wrapping, got %v", KindOf(err))
		}
	})

	t.Run("plain error", func(t *testing.T) {
		if KindOf(errors.New("boom")) != KindUnknown {
			t.Error("Expected KindUnknown for a plain error")
		}
	})

	t.Run("nil cause", func(t *testing.T) {
		err := Wrap(KindUpstreamUnavailable, "github unreachable", errors.New("dial tcp"))
		if err.Error() != "github unreachable: dial tcp" {
			t.Errorf("Unexpected message: %q", err.Error())
		}
	})
}

func TestIsKind(t *testing.T) {
	err := Newf(KindValidation, "payload of %d bytes exceeds limit", 123)
	if !IsKind(err, KindValidation) {
		t.Error("Expected IsKind to match KindValidation")
	}
	if IsKind(err, KindConflict) {
		t.Error("Did not expect IsKind to match KindConflict")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindNotFound:            "not_found",
		KindConflict:            "conflict",
		KindUnauthorized:        "unauthorized",
		KindValidation:          "validation",
		KindInvalidCiphertext:   "invalid_ciphertext",
		KindUpstreamUnavailable: "upstream_unavailable",
		KindUnknown:             "unknown",
	}
	for kind, want := range cases {
		if kind.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, kind.String(), want)
		}
	}
}
