// Package identity is the Identity & Key Store service: it owns the
// device's long-term keypair through a key backend and is the only
// component allowed to touch private key material.
package identity
