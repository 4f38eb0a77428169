// Package pubsub delivers graph-change and status events to web clients
// over Server-Sent Events.
package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published by the hydroscope server.
const (
	TopicGraph  = "graph"  // the render payload changed
	TopicStatus = "status" // load/layout progress
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // per-topic ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// Status is the payload on TopicStatus.
type Status struct {
	State   string `json:"state"` // loading, laying_out, ready, error
	Message string `json:"message"`
}
