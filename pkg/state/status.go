package state

import "fmt"

// Status is an identity's presence state.
type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusBusy    Status = "busy"
	StatusOffline Status = "offline"
)

func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}
