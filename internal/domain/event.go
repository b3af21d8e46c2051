package domain

import (
	"encoding/json"
	"time"
)

// Collection names the remote tables a change feed can be opened on.
type Collection string

const (
	CollectionJobs     Collection = "jobs"
	CollectionFiles    Collection = "files"
	CollectionInvoices Collection = "invoices"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one row-change notification. New carries the full record for
// INSERT and UPDATE; Old carries at least the id for UPDATE and DELETE.
type ChangeEvent struct {
	Collection Collection      `json:"collection"`
	Type       EventType       `json:"type"`
	New        json.RawMessage `json:"new,omitempty"`
	Old        json.RawMessage `json:"old,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// record is the minimal shape shared by every collection row.
type record struct {
	ID int64 `json:"id"`
}

// NewID returns the id carried by the event's New record, or 0.
func (e ChangeEvent) NewID() int64 {
	var r record
	if err := json.Unmarshal(e.New, &r); err != nil {
		return 0
	}
	return r.ID
}

// OldID returns the id carried by the event's Old record, or 0.
func (e ChangeEvent) OldID() int64 {
	var r record
	if err := json.Unmarshal(e.Old, &r); err != nil {
		return 0
	}
	return r.ID
}

// EntityID returns the id the event is about, preferring the new record.
func (e ChangeEvent) EntityID() int64 {
	if id := e.NewID(); id != 0 {
		return id
	}
	return e.OldID()
}

// FieldEquals reports whether the event's record carries the given top-level
// field with the given value. Numeric values compare through float64, the way
// encoding/json decodes untyped numbers. Used for single-column equality
// filters on subscriptions.
func (e ChangeEvent) FieldEquals(field string, value any) bool {
	return rawFieldEquals(e.New, field, value) || rawFieldEquals(e.Old, field, value)
}

func rawFieldEquals(raw json.RawMessage, field string, value any) bool {
	if len(raw) == 0 {
		return false
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return false
	}
	got, ok := decoded[field]
	if !ok {
		return false
	}
	switch want := value.(type) {
	case int64:
		number, ok := got.(float64)
		return ok && int64(number) == want
	case int:
		number, ok := got.(float64)
		return ok && int(number) == want
	case float64:
		number, ok := got.(float64)
		return ok && number == want
	case string:
		text, ok := got.(string)
		return ok && text == want
	default:
		return false
	}
}

// MarshalRecord encodes an entity for the New/Old fields of a ChangeEvent.
func MarshalRecord(entity any) json.RawMessage {
	encoded, err := json.Marshal(entity)
	if err != nil {
		return nil
	}
	return encoded
}
