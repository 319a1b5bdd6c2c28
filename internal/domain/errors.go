package domain

import "errors"

// Error taxonomy. Callers classify wrapped errors with errors.Is; only
// ErrNoKeyBackend is fatal, everything else is recoverable or degrades.
var (
	// ErrNoKeyBackend means neither a hardware security module nor the
	// software key store is usable. The process cannot establish an
	// identity and must not start.
	ErrNoKeyBackend = errors.New("no usable key backend")

	// ErrKeyMismatch means a peer presented a different public key than the
	// one on record, which may indicate impersonation. The stale session is
	// invalidated; the peer must be re-authorized out of band.
	ErrKeyMismatch = errors.New("peer public key mismatch")

	// ErrSessionExpired means the session was invalidated (renegotiation
	// required) and can no longer encrypt or decrypt.
	ErrSessionExpired = errors.New("session expired")

	// ErrAuthenticationFailed means an envelope's authentication tag did
	// not verify: tampering or a wrong key. The envelope is discarded.
	ErrAuthenticationFailed = errors.New("envelope authentication failed")

	// ErrReplayDetected means an envelope carried a counter at or below the
	// session's receive high watermark. The envelope is discarded.
	ErrReplayDetected = errors.New("replay detected")

	// ErrMalformed means bytes failed structural decoding: bad tag,
	// truncated field, trailing data, or invalid UTF-8 in a text payload.
	ErrMalformed = errors.New("malformed message")

	// ErrStoreUnavailable means the durable message store failed
	// persistently and retention has degraded to memory only.
	ErrStoreUnavailable = errors.New("message store unavailable")

	// ErrAckTimeout means the transport did not acknowledge a send within
	// the configured window. Distinct from crypto and session errors so
	// callers can retry without re-keying.
	ErrAckTimeout = errors.New("transport acknowledgement timeout")

	// ErrUnknownPeer means no public key is on record for a device, so no
	// session can be derived for it.
	ErrUnknownPeer = errors.New("unknown peer")
)
