package notification

import (
	"context"
	"errors"
)

// Kind identifies a notification template.
type Kind string

// KindConfirmation asks a new user to confirm their email address.
const KindConfirmation Kind = "confirmation"

// Message is the queued payload for one notification.
type Message struct {
	Kind      Kind   `json:"kind"`
	AccountID int64  `json:"account_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Token     string `json:"token"`
}

// Sink accepts messages for asynchronous delivery.
type Sink interface {
	Enqueue(ctx context.Context, msg Message) error
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrQueueClosed = errors.New("notification queue is closed")
	ErrUnknownKind = errors.New("unknown notification kind")
)
