package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	err := Wrap(ErrOracle, "decision", "consult oracle", "endpoint unreachable", errors.New("dial tcp: refused"))
	if !errors.Is(err, ErrOracle) {
		t.Fatalf("expected wrapped error to match ErrOracle, got %v", err)
	}
	if !strings.Contains(err.Error(), "decision: consult oracle") {
		t.Errorf("expected detail in message, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "dial tcp") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "cache", "read", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestWrapEmptyDetail(t *testing.T) {
	err := Wrap(ErrValidation, "", "", "", nil)
	if !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected placeholder detail, got %q", err.Error())
	}
}
