package generation

import (
	"time"
)

// NotificationType identifies a user-facing generation event.
type NotificationType string

const (
	NotificationStarted   NotificationType = "generation_started"
	NotificationCompleted NotificationType = "generation_completed"
	NotificationFailed    NotificationType = "generation_failed"
)

// Notification is raised for every generation start, completion and failure.
type Notification struct {
	Type     NotificationType `json:"type"`
	Path     string           `json:"path"`
	Provider string           `json:"provider,omitempty"`
	Message  string           `json:"message,omitempty"`
	Nodes    int              `json:"nodes,omitempty"` // children merged, on completion
	Time     time.Time        `json:"time"`
}

// Notifier receives generation notifications. Implementations must not block.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notification) {}
