package domain

import "time"

const (
	NotificationOathInvite      = "OATH_INVITE"
	NotificationOathStarted     = "OATH_STARTED"
	NotificationOathSettled     = "OATH_SETTLED"
	NotificationDisputeOpened   = "DISPUTE_REQUIRES_JUDGMENT"
	NotificationDisputeResolved = "DISPUTE_RESOLVED"
)

// Notification is a fire-and-forget message to a user. Delivery failures are
// logged, never surfaced to the state transition that produced them.
type Notification struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	SenderID   string    `json:"senderId,omitempty"`
	ReceiverID string    `json:"receiverId"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	ActionURL  string    `json:"actionUrl,omitempty"`
	Read       bool      `json:"read"`
	CDate      time.Time `json:"cdate"`
}

// Event is the realtime envelope published over pub/sub when a notification
// is recorded.
type Event struct {
	Type      string       `json:"type"`
	Recipient string       `json:"recipient"`
	Body      Notification `json:"body"`
}
