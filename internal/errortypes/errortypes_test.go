package errortypes

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ""},
		{"dimension mismatch", &DimensionMismatchError{Expected: 3, Actual: 2}, ErrorTypeValidation},
		{"invalid vector", &InvalidVectorError{ItemID: "a", Reason: "empty vector"}, ErrorTypeValidation},
		{"wrapped empty input", fmt.Errorf("mean: %w", ErrEmptyInput), ErrorTypeValidation},
		{"item not found", ErrItemNotFound, ErrorTypeNotFound},
		{"no items", ErrNoItems, ErrorTypeNotFound},
		{"lost during rebuild", ErrLostDuringRebuild, ErrorTypeInternal},
		{"app error keeps type", DatabaseError(ErrItemNotFound, "lookup failed"), ErrorTypeDatabase},
		{"unknown", errors.New("boom"), ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrapsToSentinel(t *testing.T) {
	err := NotFoundError(ErrTargetGroupNotFound, "reassign failed").
		WithField("target_group_id", "cluster_9")

	if !errors.Is(err, ErrTargetGroupNotFound) {
		t.Errorf("expected errors.Is to reach ErrTargetGroupNotFound, got %v", err)
	}
	if !IsNotFoundError(err) {
		t.Errorf("expected not found classification")
	}
	if err.Fields["target_group_id"] != "cluster_9" {
		t.Errorf("expected target_group_id field, got %v", err.Fields)
	}
}

func TestInvalidVectorErrorWrapsDimensionMismatch(t *testing.T) {
	err := &InvalidVectorError{
		ItemID: "doc-2",
		Reason: "dimension differs from first item",
		Err:    &DimensionMismatchError{Expected: 4, Actual: 3},
	}

	if !errors.Is(err, ErrInvalidVector) {
		t.Errorf("expected ErrInvalidVector")
	}
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch through Unwrap")
	}

	var dm *DimensionMismatchError
	if !errors.As(err, &dm) || dm.Expected != 4 || dm.Actual != 3 {
		t.Errorf("expected dimensions 4/3, got %+v", dm)
	}
}

func TestNewWithNilCause(t *testing.T) {
	err := ConfigError(nil, "bad setup")
	if err.Err == nil {
		t.Fatal("expected a placeholder cause")
	}
	if got := err.Error(); got != "bad setup: config error" {
		t.Errorf("Error() = %q", got)
	}
	if !strings.Contains(err.StackInfo, "TestNewWithNilCause") {
		t.Errorf("expected the calling test in the stack, got %q", err.StackInfo)
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogError(logger, DatabaseError(errors.New("disk full"), "failed to store item").WithField("item_id", "a"))
	out := buf.String()
	for _, want := range []string{"failed to store item", "type=database", "item_id=a", "disk full"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}

	buf.Reset()
	LogError(logger, ErrNoItems)
	if !strings.Contains(buf.String(), "type=not_found") {
		t.Errorf("expected bare errors to be classified, got %q", buf.String())
	}

	buf.Reset()
	LogError(logger, nil)
	if buf.Len() != 0 {
		t.Errorf("expected nothing logged for nil, got %q", buf.String())
	}
}
