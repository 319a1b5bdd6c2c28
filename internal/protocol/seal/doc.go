// Package seal is the crypto engine: authenticated encryption of message
// plaintext into wire envelopes and back, with replay rejection.
//
// Nonces are deterministic (the session's 4-byte tag followed by the
// big-endian send counter) so they are unique per session without
// transmitting extra state. The associated data binds each envelope to its
// sender and addressing, making addressing tampering an authentication
// failure.
package seal
