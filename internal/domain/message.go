package domain

import (
	"time"

	"github.com/google/uuid"
)

// Body is the closed set of message payloads. Only Text and Command
// implement it; a type switch over Body with a rejecting default covers
// every variant the codec can produce.
type Body interface {
	body()
}

// Text carries a UTF-8 chat payload.
type Text struct {
	Content string
}

func (Text) body() {}

// Command carries a control opcode and its argument bytes.
type Command struct {
	Opcode uint8
	Args   []byte
}

func (Command) body() {}

// Message is one unit of communication between devices. Immutable once
// constructed; Recipient is Broadcast for messages addressed to all peers.
type Message struct {
	ID        string
	Timestamp time.Time
	Sender    DeviceID
	Recipient DeviceID
	Body      Body
}

// NewText builds a text message with a fresh ID and the current time.
func NewText(sender, recipient DeviceID, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Sender:    sender,
		Recipient: recipient,
		Body:      Text{Content: content},
	}
}

// NewCommand builds a command message with a fresh ID and the current time.
func NewCommand(sender, recipient DeviceID, opcode uint8, args []byte) Message {
	return Message{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Sender:    sender,
		Recipient: recipient,
		Body:      Command{Opcode: opcode, Args: append([]byte(nil), args...)},
	}
}

// Direction records which way a stored message travelled.
type Direction uint8

const (
	// Inbound marks a message received from a peer.
	Inbound Direction = iota
	// Outbound marks a message sent by the local device.
	Outbound
)

// String returns "inbound" or "outbound".
func (d Direction) String() string {
	if d == Outbound {
		return "outbound"
	}
	return "inbound"
}

// StoredMessage is a message at rest in the message store. Seq is assigned
// by the store and orders entries across all conversations.
type StoredMessage struct {
	Message
	Direction       Direction
	ConversationKey string
	Seq             uint64
}

// ConversationKeyFor returns the conversation a message files under:
// the broadcast key for broadcasts, otherwise the remote party.
func ConversationKeyFor(m Message, dir Direction) string {
	if m.Recipient.IsBroadcast() {
		return BroadcastKey
	}
	if dir == Outbound {
		return m.Recipient.String()
	}
	return m.Sender.String()
}
