package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestWithComponentTagsEveryRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Handler: slog.NewTextHandler(&buf, nil)}).WithComponent(ComponentWorker)

	logger.Info("Mirrored transaction", FieldRecordID, "tx-1")

	out := buf.String()
	if !strings.Contains(out, FieldComponent+"="+ComponentWorker) {
		t.Fatalf("missing component attribute in %q", out)
	}
	if !strings.Contains(out, FieldRecordID+"=tx-1") {
		t.Fatalf("missing record id attribute in %q", out)
	}
}

func TestComponentAccessor(t *testing.T) {
	logger := New(DefaultConfig())
	if logger.Component() != ComponentApp {
		t.Fatalf("Component() = %q, want %q", logger.Component(), ComponentApp)
	}
	if got := logger.WithComponent(ComponentWorker).Component(); got != ComponentWorker {
		t.Fatalf("Component() after WithComponent = %q", got)
	}
}
