package logging

import (
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"
)

func TestNewLoggerLevels(t *testing.T) {
	logger, err := NewLogger("debug")
	if err != nil {
		t.Fatalf("expected logger, got error: %v", err)
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected debug level to be enabled")
	}

	if _, err := NewLogger("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestOperationErrorFormatsAndUnwraps(t *testing.T) {
	base := errors.New("inference failed")
	err := NewOperationError("classifier.predict", "req-1", base)

	if got := err.Error(); got != "classifier.predict (request_id=req-1): inference failed" {
		t.Fatalf("unexpected message: %s", got)
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped error to match")
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Operation != "classifier.predict" {
		t.Fatalf("expected OperationError, got %T", err)
	}

	if NewOperationError("noop", "", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	if got := NewOperationError("labels.load", "", base).Error(); got != "labels.load: inference failed" {
		t.Fatalf("unexpected message: %s", got)
	}
}

func TestErrorFieldsLiftsOperation(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewOperationError("usecase.predict", "req-9", errors.New("boom")))

	fields := ErrorFields(wrapped)
	if len(fields) != 3 {
		t.Fatalf("expected error, operation and request id fields, got %d", len(fields))
	}
	if fields[1].Key != "operation" || fields[1].String != "usecase.predict" {
		t.Fatalf("unexpected operation field: %+v", fields[1])
	}
	if fields[2].Key != "request_id" || fields[2].String != "req-9" {
		t.Fatalf("unexpected request id field: %+v", fields[2])
	}

	if got := ErrorFields(errors.New("plain")); len(got) != 1 {
		t.Fatalf("expected only the error field, got %d", len(got))
	}
}
