// Package agree derives pairwise session key material from an X25519 shared
// secret. Both peers feed HKDF the same ordered public keys, so the derived
// key and session tag are identical on either side regardless of who
// initiated.
package agree
