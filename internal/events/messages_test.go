package events

import (
	"testing"
	"time"
)

func TestRecordChangeMessageRoundTrip(t *testing.T) {
	msg := NewRecordChangeMessage(KindTransaction, OpCreated, "abc-123", "user-1")

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := RecordChangeMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Kind != KindTransaction || got.Op != OpCreated || got.ID != "abc-123" || got.Owner != "user-1" {
		t.Fatalf("unexpected message: %+v", got)
	}
	if got.Timestamp.IsZero() || time.Since(got.Timestamp) > time.Minute {
		t.Fatalf("unexpected timestamp: %v", got.Timestamp)
	}
}

func TestRecordChangeMessageFromJSONInvalid(t *testing.T) {
	if _, err := RecordChangeMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
