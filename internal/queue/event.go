// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into notification rows.
package queue

// Kinds of notification events published to the broker.
const (
	KindRegistrationConfirmed = "registration.confirmed"
	KindEventApproved         = "event.approved"
	KindEventRejected         = "event.rejected"
)

// NotificationEvent is published whenever something a user should hear
// about happens: their registration was confirmed, or a verdict landed on
// one of their events. It carries everything the consumer needs to write
// the notification without querying back.
type NotificationEvent struct {
	Kind       string `json:"kind"`
	UserID     string `json:"user_id"`
	EventID    string `json:"event_id,omitempty"`
	EventTitle string `json:"event_title,omitempty"`
	SectionID  string `json:"section_id,omitempty"`
	Message    string `json:"message"`
	OccurredAt string `json:"occurred_at"`
}
