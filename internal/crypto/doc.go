// Package crypto wraps the low-level primitives used by the identity and
// session layers: X25519 key agreement, Ed25519 signatures, public key
// fingerprints, and best-effort wiping of key material.
package crypto
