// Package commands defines the meshwire CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - init         Create or load the local device identity
//   - fingerprint  Print the identity fingerprint
//   - peers        Add, list, and announce known peers
//   - send         Encrypt a message and print the wire frame
//   - recv         Decrypt frames from stdin and deliver them
//   - history      Print a stored conversation
//   - demo         Run an in-process exchange over the loopback hub
//
// # Implementation
//
// Each command builds the dependency graph (key backend, identity, sessions
// reseeded from the peer file, message store) through internal/app, then
// attaches the transport it needs: send and recv use the base64 line
// transport over stdio, demo uses the in-process loopback hub.
package commands
