// Package channel bridges Heliograph to chat platforms (Telegram, Discord,
// Slack). Each adapter relays text and image messages between the single
// authorized remote operator and the local relay.
package channel

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must
// satisfy. Adapters own connection management, attachment download, and the
// first line of sender filtering (messages from anyone but the authorized
// operator are dropped before they reach the relay).
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the operator.
	// The channel is closed when the context is cancelled or the adapter
	// is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message to the operator.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundMessage represents a message received from the chat platform.
type InboundMessage struct {
	Platform   string    // e.g. "telegram", "discord", "slack"
	MessageID  string    // platform delivery ID; unique per message but may be redelivered
	SenderID   string    // platform-specific sender identifier
	SenderName string    // human-readable sender name
	Text       string    // raw message text (caption for image messages)
	Attachment string    // local path of a downloaded image, if any
	ReceivedAt time.Time // when the message was sent
}

// OutboundMessage represents a message to be sent to the operator.
type OutboundMessage struct {
	Text      string // message text; caption when ImagePath is set
	HTML      bool   // request rich formatting where the platform supports it
	ImagePath string // when set, send the file at this path as a photo
}
