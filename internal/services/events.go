package services

import (
	"encoding/json"
	"log"
	"time"
)

// Event names published on the activity queue.
const (
	EventUserRegistered = "user.registered"
	EventUserUpdated    = "user.updated"
	EventPigeonCreated  = "pigeon.created"
	EventPigeonUpdated  = "pigeon.updated"
	EventPigeonDeleted  = "pigeon.deleted"
)

// EventPublisher delivers serialized activity events. pkg/rabbitmq.Client satisfies it.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// ActivityEvent is the payload of every published event. It never carries image data.
type ActivityEvent struct {
	Event    string    `json:"event"`
	UserID   string    `json:"userId"`
	PigeonID string    `json:"pigeonId,omitempty"`
	At       time.Time `json:"at"`
}

// publishEvent sends an event if a publisher is configured. Failures are logged, never returned.
func publishEvent(pub EventPublisher, event ActivityEvent) {
	if pub == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", event.Event, err)
		return
	}
	if err := pub.Publish(event.Event, body); err != nil {
		log.Printf("Warning: Failed to publish %s event for user %s: %v", event.Event, event.UserID, err)
	}
}
