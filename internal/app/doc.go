// Package app wires application dependencies for the CLI.
//
// It builds the key backend, identity, session manager (reseeded from the
// peer file), and message store from Config, exposing them via the App
// struct for commands and embedding programs; callers attach their own
// transport through Messenger.
package app
