package amqp

import (
	"encoding/json"
	"time"
)

const (
	EntityTransaction = "transaction"
	EntityBalance     = "balance"

	ActionCreated  = "created"
	ActionDeleted  = "deleted"
	ActionImported = "imported"
	ActionUpdated  = "updated"
)

// ChangeEvent is a lightweight notification that a record collection
// changed. It carries identifiers only; consumers fetch the current state
// from the store.
type ChangeEvent struct {
	Entity    string    `json:"entity"`
	Kind      string    `json:"kind,omitempty"`
	Action    string    `json:"action"`
	RecordID  string    `json:"record_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeEvent(entity, kind, action, recordID string) *ChangeEvent {
	return &ChangeEvent{
		Entity:    entity,
		Kind:      kind,
		Action:    action,
		RecordID:  recordID,
		Timestamp: time.Now(),
	}
}

func (m *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var msg ChangeEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
