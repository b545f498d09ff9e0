package engine

import (
	"errors"
	"testing"
)

func TestIsBudgetExceeded(t *testing.T) {
	err := ErrBudgetExceeded("capacity")
	if !IsBudgetExceeded(err) {
		t.Fatalf("expected IsBudgetExceeded true")
	}
}

func TestIsModelUnavailable(t *testing.T) {
	err := ErrModelUnavailable("x")
	if !IsModelUnavailable(err) {
		t.Fatalf("expected IsModelUnavailable true")
	}
}

func TestIsInvalidImage(t *testing.T) {
	err := ErrInvalidImage("truncated")
	if !IsInvalidImage(err) {
		t.Fatalf("expected IsInvalidImage true")
	}
}

func TestPredicatesRejectOtherErrors(t *testing.T) {
	err := errors.New("plain")
	if IsTooBusy(err) || IsModelNotFound(err) || IsModelUnavailable(err) || IsBudgetExceeded(err) || IsInvalidImage(err) {
		t.Fatalf("predicates must reject unrelated errors")
	}
}
