package services_test

import (
	"errors"
	"strings"
	"testing"

	"podd/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("disk I/O error")
	err := services.Wrap(services.ErrStore, "download", "record episodes", "barrier write failed", base)
	if !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"download", "record episodes", "barrier write failed", "disk I/O error"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestRetryable(t *testing.T) {
	if !services.Retryable(services.Wrap(services.ErrStore, "update", "list", "", nil)) {
		t.Fatal("store errors should be retried on the next tick")
	}
	if services.Retryable(services.Wrap(services.ErrConfiguration, "notify", "build", "", nil)) {
		t.Fatal("configuration errors should not be retried")
	}
}
