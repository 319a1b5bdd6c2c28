// Package transport contains the in-process implementations of
// domain.Transport: a loopback hub for tests and the demo command, and a
// base64 line transport carrying frames over pipes or terminals. Real radio
// or tunnel transports are collaborators that implement the same interface.
package transport
