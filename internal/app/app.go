package app

import (
	"github.com/sirupsen/logrus"

	"meshwire/internal/domain"
	"meshwire/internal/services/identity"
	"meshwire/internal/services/message"
	"meshwire/internal/services/session"
	"meshwire/internal/store"
)

// App is the assembled dependency graph: everything below the presentation
// layer, ready for a CLI command or an embedding program.
type App struct {
	Cfg      Config
	Log      *logrus.Logger
	IDs      *identity.Service
	Sessions *session.Service
	Peers    *store.PeerFileStore
	Store    domain.MessageStore
}

// Messenger builds a message manager over tr using the app's configuration.
// The transport is the caller's collaborator: a loopback hub, a pipe, a
// radio bridge.
func (a *App) Messenger(tr domain.Transport) *message.Service {
	return message.New(a.IDs, a.Sessions, a.Store, tr, message.Options{
		MaxConcurrent: a.Cfg.MaxConcurrentMessages,
		AckTimeout:    a.Cfg.AckTimeout,
		PruneInterval: a.Cfg.PruneInterval,
	}, a.Log)
}

// Close releases the store and wipes key material.
func (a *App) Close() error {
	var first error
	if err := a.Store.Close(); err != nil {
		first = err
	}
	if err := a.IDs.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
