// Package store implements the retention-bounded message store and the peer
// registry file.
//
// Three message store flavors share the domain.MessageStore contract: an
// in-memory store, a SQLite-backed store for durability, and a resilient
// wrapper that retries a failing durable store with backoff before degrading
// to memory with a surfaced warning.
package store
