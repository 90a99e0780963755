package handler

import (
	"encoding/json"
	"time"

	"provena/internal/audit"
)

// EntryResponse is the HTTP shape of an audit entry. The payload is passed
// through verbatim.
type EntryResponse struct {
	ID            uint64          `json:"id"`
	Actor         string          `json:"actor"`
	Action        string          `json:"action"`
	Category      string          `json:"category"`
	SubjectItemID string          `json:"subject_item_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// FromEntry converts a domain entry to an HTTP response.
func FromEntry(e audit.Entry) EntryResponse {
	return EntryResponse{
		ID:            uint64(e.ID),
		Actor:         e.Actor.String(),
		Action:        e.Action,
		Category:      string(audit.Category(e.Action)),
		SubjectItemID: e.SubjectItemID.String(),
		Timestamp:     e.Timestamp,
		Payload:       json.RawMessage(e.Payload),
	}
}

// FromEntries converts a slice of entries, preserving order.
func FromEntries(entries []audit.Entry) []EntryResponse {
	responses := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, FromEntry(e))
	}
	return responses
}

// CountResponse is the HTTP response for the entry count.
type CountResponse struct {
	Count uint64 `json:"count"`
}
