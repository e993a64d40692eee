// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationQueue is the durable queue carrying reservation lifecycle events.
const ReservationQueue = "reservation.events"

// Event types published on ReservationQueue.
const (
	EventCreated = "reservation.created"
	EventUpdated = "reservation.updated"
	EventDeleted = "reservation.deleted"
)

// ReservationEvent is published after a reservation is created, updated or
// deleted.  It carries what a notifier needs to text the guest their
// booking token without reading the record store.
type ReservationEvent struct {
	EventID       string `json:"event_id"`
	Type          string `json:"type"`
	ReservationID uint64 `json:"reservation_id"`
	GuestName     string `json:"guest_name"`
	Phone         string `json:"phone"`
	SMSToken      string `json:"sms_token"`
	CheckinDate   string `json:"checkin_date"`
	CheckoutDate  string `json:"checkout_date"`
	OccurredAt    string `json:"occurred_at"`
}
