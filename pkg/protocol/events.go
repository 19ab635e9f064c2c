// Package protocol defines the typed wire contract between the fabric
// and its clients. Frames are JSON objects {event, id?, payload}; the
// optional id echoes back on acked request/response pairs so clients
// can correlate callbacks.
package protocol

import "encoding/json"

// Server → client events.
const (
	EventNotification     = "notification"
	EventProfileUpdate    = "profileUpdate"
	EventUserOnline       = "userOnline"
	EventUserOffline      = "userOffline"
	EventSearchSuggestion = "searchSuggestion"
	EventSystemHealth     = "systemHealth"
	EventAdminAlert       = "adminAlert"
	EventUserStatusUpdate = "userStatusUpdate"
	EventUserTyping       = "userTyping"
	EventSystemUpdate     = "systemUpdate"
	EventPong             = "pong"
	EventError            = "error"
)

// Client → server events.
const (
	EventValidateProfileID = "validateProfileId"
	EventSearchSuggestions = "searchSuggestions"
	EventJoinRoom          = "joinRoom"
	EventLeaveRoom         = "leaveRoom"
	EventUpdateStatus      = "updateStatus"
	EventTyping            = "typing"
	EventAdminMonitor      = "adminMonitor"
	EventActivity          = "activity"
	EventPing              = "ping"
)

// Frame is the envelope every message travels in.
type Frame struct {
	Event   string          `json:"event"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals an outbound frame with a typed payload.
func Encode(event, id string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Frame{Event: event, ID: id, Payload: raw})
}
