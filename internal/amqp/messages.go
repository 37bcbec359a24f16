package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidMessage = errors.New("invalid ledger sync message")

// LedgerSyncMessage announces that one stored record of a household changed.
// It carries no payload; the worker reads the current record from storage,
// so a stale message still pushes the latest state.
type LedgerSyncMessage struct {
	Household string    `json:"household"`
	Key       string    `json:"key"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerSyncMessage(household, key string, version int64) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		Household: household,
		Key:       key,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerSyncMessageFromJSON decodes and checks a message body.
func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Household == "" || msg.Key == "" {
		return nil, ErrInvalidMessage
	}
	return &msg, nil
}
