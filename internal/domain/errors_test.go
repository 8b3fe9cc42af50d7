package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesSentinelOfItsKind(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{name: "validation", err: NewValidationError([]string{"code is required"}), target: ErrValidation, want: true},
		{name: "business rule", err: BusinessRulef("quantity must be > 0"), target: ErrBusinessRule, want: true},
		{name: "not found", err: NotFoundf("customer %s", "C1"), target: ErrNotFound, want: true},
		{name: "conflict", err: Conflictf("code %s taken", "C1"), target: ErrConflict, want: true},
		{name: "wrapped not found", err: fmt.Errorf("lookup: %w", NotFoundf("x")), target: ErrNotFound, want: true},
		{name: "kind mismatch", err: NotFoundf("x"), target: ErrConflict, want: false},
		{name: "plain error", err: errors.New("boom"), target: ErrNotFound, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "validation", err: NewValidationError(nil), want: KindValidation},
		{name: "wrapped business rule", err: fmt.Errorf("price: %w", BusinessRulef("bad")), want: KindBusinessRule},
		{name: "infrastructure", err: errors.New("connection reset"), want: KindUnexpected},
		{name: "duplicate key is unexpected until translated", err: ErrDuplicateKey, want: KindUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationErrorMessageListsFields(t *testing.T) {
	err := NewValidationError([]string{"code is required", "name is required"})
	if got, want := err.Error(), "validation failed: code is required; name is required"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if got := NewValidationError(nil).Error(); got != "validation failed" {
		t.Errorf("Error() without fields = %q", got)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if !IsDuplicateKey(fmt.Errorf("insert customer: %w", ErrDuplicateKey)) {
		t.Error("wrapped ErrDuplicateKey must be detected")
	}
	if IsDuplicateKey(Conflictf("code taken")) {
		t.Error("conflict error is not a storage duplicate key")
	}
	if IsDuplicateKey(nil) {
		t.Error("nil is not a duplicate key")
	}
}
