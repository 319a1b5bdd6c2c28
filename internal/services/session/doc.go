// Package session is the Session Manager: it turns discovery
// advertisements into cached pairwise sessions, owns the key-mismatch and
// authentication-failure policies, and is the only caller of the identity
// service's key agreement.
package session
