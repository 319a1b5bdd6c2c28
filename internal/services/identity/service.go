package identity

import (
	"github.com/sirupsen/logrus"

	"meshwire/internal/crypto"
	"meshwire/internal/domain"
	"meshwire/internal/keystore"
)

// Service fronts the selected key backend. Agree and Sign are consumed by
// the session layer only; everything else sees just the public identity.
type Service struct {
	backend keystore.Backend
	id      domain.DeviceIdentity
	log     *logrus.Logger
}

// New opens a key backend rooted at dir and establishes the device
// identity. It fails with domain.ErrNoKeyBackend when neither the hardware
// module nor the software store is usable; the process must not start
// without an identity.
func New(dir, passphrase string, log *logrus.Logger) (*Service, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	backend, err := keystore.Open(dir, passphrase, log)
	if err != nil {
		return nil, err
	}
	id, err := backend.GenerateOrLoad()
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	log.WithField("device", id.ID).Debug("identity established")
	return &Service{backend: backend, id: id, log: log}, nil
}

// Identity returns the public device identity, stable across restarts.
func (s *Service) Identity() domain.DeviceIdentity { return s.id }

// Fingerprint returns the display fingerprint of the device's public key.
func (s *Service) Fingerprint() string {
	return crypto.Fingerprint(s.id.XPub.Slice())
}

// Agree computes the raw ECDH shared secret with a peer's public key. The
// computation happens inside the backend, so private material stays behind
// the crypto boundary.
func (s *Service) Agree(peer domain.X25519Public) ([]byte, error) {
	return s.backend.Agree(peer)
}

// Sign signs data with the device's Ed25519 key.
func (s *Service) Sign(data []byte) []byte {
	return s.backend.Sign(data)
}

// Close wipes in-memory key material.
func (s *Service) Close() error { return s.backend.Close() }

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
