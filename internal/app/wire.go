package app

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"meshwire/internal/domain"
	"meshwire/internal/services/identity"
	"meshwire/internal/services/session"
	"meshwire/internal/store"
)

// New constructs the dependency graph from cfg: key backend, identity,
// session manager reseeded from the peer file, and the message store
// (resilient SQLite, or in-memory when no store path is set).
func New(cfg Config, log *logrus.Logger) (*App, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, fmt.Errorf("create home %s: %w", cfg.Home, err)
	}

	ids, err := identity.New(cfg.Home, cfg.Passphrase, log)
	if err != nil {
		return nil, err
	}

	sessions := session.New(ids, cfg.AuthFailureThreshold, log)
	peers := store.NewPeerFileStore(cfg.Home)
	if advs, err := peers.ListPeers(); err != nil {
		log.WithError(err).Warn("could not load saved peers")
	} else {
		for _, adv := range advs {
			if adv.Device == ids.Identity().ID {
				continue
			}
			if err := sessions.Seed(adv); err != nil {
				log.WithError(err).WithField("peer", adv.Device).Warn("skipping saved peer")
			}
		}
	}

	msgs, err := openStore(cfg, log)
	if err != nil {
		_ = ids.Close()
		return nil, err
	}

	return &App{
		Cfg:      cfg,
		Log:      log,
		IDs:      ids,
		Sessions: sessions,
		Peers:    peers,
		Store:    msgs,
	}, nil
}

func openStore(cfg Config, log *logrus.Logger) (domain.MessageStore, error) {
	if cfg.StorePath == "" {
		log.Debug("using in-memory message store")
		return store.NewMemory(cfg.RetentionDays), nil
	}
	db, err := store.NewSQLite(cfg.StorePath, cfg.RetentionDays)
	if err != nil {
		return nil, fmt.Errorf("open message store %s: %w", cfg.StorePath, err)
	}
	return store.NewResilient(db, cfg.RetentionDays, log), nil
}
