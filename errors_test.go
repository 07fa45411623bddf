package vial_test

import (
	"errors"
	"fmt"
	"testing"

	vial "github.com/xraph/vial"
)

func TestErrorClassification(t *testing.T) {
	notFound := fmt.Errorf("vial/sqlite: update: %w", vial.ErrNotFound)

	tests := []struct {
		name      string
		err       error
		store     bool
		policy    bool
		notFound  bool
		retryable bool
	}{
		{"store unavailable", fmt.Errorf("create: %w", vial.ErrStoreUnavailable), true, false, false, true},
		{"store closed", vial.ErrStoreClosed, true, false, false, false},
		{"capacity guard", fmt.Errorf("%w: 0.05 ml left", vial.ErrCapacityGuard), false, true, false, false},
		{"not found", notFound, false, false, true, false},
		{"validation", vial.ValidationError{Field: "id", Message: "required"}, false, false, false, false},
		{"plain", errors.New("x"), false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vial.IsStoreError(tt.err); got != tt.store {
				t.Errorf("IsStoreError: got %v", got)
			}
			if got := vial.IsPolicyRejection(tt.err); got != tt.policy {
				t.Errorf("IsPolicyRejection: got %v", got)
			}
			if got := vial.IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound: got %v", got)
			}
			if got := vial.IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable: got %v", got)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := vial.ValidationError{Field: "date", Message: "not a calendar date"}
	want := "vial: validation failed for date: not a calendar date"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, vial.ErrInvalidInput) {
		t.Error("validation errors should match ErrInvalidInput")
	}
}
