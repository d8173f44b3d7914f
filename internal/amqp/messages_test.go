package amqp

import (
	"testing"
	"time"
)

func TestNewChangeEvent(t *testing.T) {
	ev := NewChangeEvent(EntityTransaction, "income", ActionCreated, "abc-123")

	if ev.Entity != EntityTransaction || ev.Kind != "income" || ev.Action != ActionCreated {
		t.Errorf("unexpected event fields: %+v", ev)
	}
	if ev.RecordID != "abc-123" {
		t.Errorf("RecordID = %v, want abc-123", ev.RecordID)
	}
	if ev.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(ev.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestChangeEvent_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ev := &ChangeEvent{
		Entity:    EntityBalance,
		Action:    ActionUpdated,
		Timestamp: timestamp,
	}

	jsonBytes, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ChangeEventFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("ChangeEventFromJSON() error = %v", err)
	}

	if parsed.Entity != ev.Entity {
		t.Errorf("Parsed Entity = %v, want %v", parsed.Entity, ev.Entity)
	}
	if parsed.Action != ev.Action {
		t.Errorf("Parsed Action = %v, want %v", parsed.Action, ev.Action)
	}
	if parsed.Kind != "" || parsed.RecordID != "" {
		t.Errorf("empty fields should stay empty: %+v", parsed)
	}
	if !parsed.Timestamp.Equal(ev.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, ev.Timestamp)
	}
}

func TestChangeEvent_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"entity": 42}`)

	if _, err := ChangeEventFromJSON(invalidJSON); err == nil {
		t.Error("ChangeEventFromJSON() should fail with invalid JSON")
	}
}
