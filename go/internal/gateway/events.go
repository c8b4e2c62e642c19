package gateway

import (
	"encoding/json"
	"time"
)

// RoomEvent is the wire envelope for every message pushed to a workshop room.
// Type uses the shared event vocabulary from the events package; Data is the
// event-specific payload.
type RoomEvent struct {
	ID         string          `json:"id"`
	WorkshopID string          `json:"workshop_id"`
	Type       string          `json:"type"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data"`
}

// NewRoomEvent builds an envelope, marshalling the payload.
func NewRoomEvent(id, workshopID, eventType string, at time.Time, payload any) (*RoomEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &RoomEvent{
		ID:         id,
		WorkshopID: workshopID,
		Type:       eventType,
		Timestamp:  at,
		Data:       data,
	}, nil
}

// ClientMessage is what a connected client may send upstream: chat messages
// and an explicit leave.
type ClientMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

const (
	ClientMessageChat  = "chat"
	ClientMessageLeave = "leave"
)
