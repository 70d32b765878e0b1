package notification

import (
	"fmt"
	"time"
)

// Notification types shown in the patient's notification feed.
const (
	TypeAppointment = "appointment"
	TypeBlood       = "blood"
	TypeQueue       = "queue"
	TypeAlert       = "alert"
	TypeHealth      = "health"
)

// DisplayTimeLayout is the clock format stored in Notification.Time.
const DisplayTimeLayout = "3:04 PM"

var validTypes = map[string]bool{
	TypeAppointment: true, TypeBlood: true, TypeQueue: true, TypeAlert: true, TypeHealth: true,
}

type Notification struct {
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Time      string            `json:"time"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}

func (n Notification) Validate() error {
	if !validTypes[n.Type] {
		return fmt.Errorf("invalid notification type: %q", n.Type)
	}
	if n.Message == "" {
		return fmt.Errorf("notification message is required")
	}
	return nil
}
