package domain

import (
	"context"
	"time"
)

// IdentityService owns the device's long-term keypair. Agree and Sign exist
// for the session layer; nothing above it should touch them.
type IdentityService interface {
	// Identity returns the public identity, stable across restarts.
	Identity() DeviceIdentity

	// Agree computes the raw ECDH shared secret with a peer's public key.
	// The caller must wipe the returned slice after deriving from it.
	Agree(peer X25519Public) ([]byte, error)

	// Sign signs data with the device's Ed25519 key.
	Sign(data []byte) []byte

	// Close releases the backend and wipes in-memory key material.
	Close() error
}

// SessionService caches one pairwise session per peer and owns the
// key-mismatch and failure-threshold policies.
type SessionService interface {
	// Seed ingests a discovery advertisement. A key change for a known peer
	// returns ErrKeyMismatch and blocks the peer until Authorize.
	Seed(adv Advertisement) error

	// GetOrCreate returns the cached session for peer, deriving a new one
	// when absent or invalidated. A public key differing from the cached
	// identity invalidates the old session and returns ErrKeyMismatch.
	GetOrCreate(peer DeviceID, key X25519Public) (*Session, error)

	// Lookup returns the session for a known peer, deriving it on first use
	// from the advertised key. ErrUnknownPeer when the peer was never
	// seeded; ErrSessionExpired when the session awaits renegotiation.
	Lookup(peer DeviceID) (*Session, error)

	// Authorize records out-of-band confirmation of a peer's key, clearing
	// any mismatch block.
	Authorize(peer DeviceID, key X25519Public)

	// RecordFailure counts an authentication failure against the session
	// and reports whether the failure threshold tore it down.
	RecordFailure(sess *Session) bool

	// Invalidate tears down the session with peer, if any.
	Invalidate(peer DeviceID)

	// Peers lists every seeded peer.
	Peers() []DeviceID
}

// MessageStore is the retention-bounded conversation log. Entries are
// immutable after Append; Append and Prune are safe to call concurrently.
type MessageStore interface {
	// Append files one message under its conversation key, assigning Seq.
	Append(m StoredMessage) error

	// Conversation returns the ordered entries for a conversation key.
	// A peer's view includes broadcast entries merged in Seq order;
	// Conversation(BroadcastKey) is the broadcast-only view.
	Conversation(key string) ([]StoredMessage, error)

	// Prune removes entries older than the retention horizon and returns
	// how many were removed. Idempotent.
	Prune(now time.Time) (int, error)

	// Close releases the underlying resources.
	Close() error
}

// Transport delivers opaque frames between device identities; the radio or
// tunnel below it is a collaborator, not part of this core. Send returns
// once the frame is acknowledged hop-side or with an error.
type Transport interface {
	Send(ctx context.Context, to DeviceID, frame []byte) error

	// Frames returns the inbound frame stream. The channel closes when ctx
	// is done; calling Frames again restarts consumption.
	Frames(ctx context.Context) (<-chan []byte, error)
}

// EventKind classifies message manager notifications.
type EventKind uint8

const (
	// EventDelivered reports a decrypted, classified, stored inbound message.
	EventDelivered EventKind = iota
	// EventDropped reports an inbound frame discarded for a crypto, codec,
	// or session error. Also logged as a security event.
	EventDropped
	// EventAcknowledged reports an outbound message acknowledged by the
	// transport and recorded in the store.
	EventAcknowledged
	// EventFailed reports an outbound message that reached its terminal
	// failure state; Err carries the cause.
	EventFailed
)

// String names the event kind.
func (k EventKind) String() string {
	switch k {
	case EventDelivered:
		return "delivered"
	case EventDropped:
		return "dropped"
	case EventAcknowledged:
		return "acknowledged"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is the message manager's only UI-facing notification. Message is
// populated for Delivered, Acknowledged, and Failed; Dropped events carry
// only the offending peer (when identifiable) and the error.
type Event struct {
	Kind    EventKind
	Message Message
	Peer    DeviceID
	Err     error
	Time    time.Time
}
