package events

import (
	"encoding/json"
	"time"
)

// Record kinds carried on the change stream.
const (
	KindTransaction = "transaction"
	KindGoal        = "goal"
	KindChallenge   = "challenge"
)

// Change operations.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// RecordChangeMessage announces a mutation on a stored record. It is
// deliberately lightweight: consumers that need the full record fetch
// it from the store by id.
type RecordChangeMessage struct {
	Kind      string    `json:"kind"`
	Op        string    `json:"op"`
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordChangeMessage creates a change message stamped with the
// current time.
func NewRecordChangeMessage(kind, op, id, owner string) *RecordChangeMessage {
	return &RecordChangeMessage{
		Kind:      kind,
		Op:        op,
		ID:        id,
		Owner:     owner,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangeMessageFromJSON creates a message from JSON bytes
func RecordChangeMessageFromJSON(data []byte) (*RecordChangeMessage, error) {
	var msg RecordChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
