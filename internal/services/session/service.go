package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"meshwire/internal/crypto"
	"meshwire/internal/domain"
	"meshwire/internal/protocol/agree"
)

// DefaultFailureThreshold is how many consecutive authentication failures a
// session tolerates before it is torn down for renegotiation.
const DefaultFailureThreshold = 5

// Service caches one session per peer and mediates all key agreement.
type Service struct {
	ids       domain.IdentityService
	log       *logrus.Logger
	threshold int

	mu       sync.Mutex
	sessions map[domain.DeviceID]*domain.Session
	known    map[domain.DeviceID]domain.Advertisement
	blocked  map[domain.DeviceID]bool
}

// New returns a session manager over the given identity service.
// failureThreshold <= 0 selects DefaultFailureThreshold.
func New(ids domain.IdentityService, failureThreshold int, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	return &Service{
		ids:       ids,
		log:       log,
		threshold: failureThreshold,
		sessions:  make(map[domain.DeviceID]*domain.Session),
		known:     make(map[domain.DeviceID]domain.Advertisement),
		blocked:   make(map[domain.DeviceID]bool),
	}
}

// Advertisement returns the local device's signed discovery announcement.
func (s *Service) Advertisement() domain.Advertisement {
	id := s.ids.Identity()
	return domain.Advertisement{
		Device: id.ID,
		Key:    id.XPub,
		EdKey:  id.EdPub,
		Sig:    s.ids.Sign(id.XPub.Slice()),
	}
}

// Seed ingests a peer advertisement from the scanning subsystem. The device
// identifier must match the key digest, and a signature, when carried, must
// verify. A key change for a known peer invalidates the cached session,
// blocks the peer, and returns ErrKeyMismatch.
func (s *Service) Seed(adv domain.Advertisement) error {
	if crypto.DeviceIDFor(adv.Key) != adv.Device {
		return fmt.Errorf("advertised id does not match key digest: %w", domain.ErrKeyMismatch)
	}
	if len(adv.Sig) > 0 && !crypto.VerifyEd25519(adv.EdKey, adv.Key.Slice(), adv.Sig) {
		return fmt.Errorf("advertisement signature invalid: %w", domain.ErrKeyMismatch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.known[adv.Device]; ok && prev.Key != adv.Key {
		s.log.WithFields(logrus.Fields{
			"peer": adv.Device,
		}).Warn("peer advertised a different public key; session invalidated pending re-authentication")
		if sess, ok := s.sessions[adv.Device]; ok {
			sess.Invalidate()
			delete(s.sessions, adv.Device)
		}
		s.blocked[adv.Device] = true
		return domain.ErrKeyMismatch
	}
	s.known[adv.Device] = adv
	return nil
}

// GetOrCreate returns the cached session for peer, deriving one when absent
// or previously invalidated. A key differing from the cached identity
// invalidates the old session and returns ErrKeyMismatch; the peer stays
// blocked until Authorize.
func (s *Service) GetOrCreate(peer domain.DeviceID, key domain.X25519Public) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blocked[peer] {
		return nil, domain.ErrKeyMismatch
	}
	if sess, ok := s.sessions[peer]; ok {
		if sess.PeerKey != key {
			s.log.WithField("peer", peer).Warn(
				"session requested with a different public key; invalidating")
			sess.Invalidate()
			delete(s.sessions, peer)
			s.blocked[peer] = true
			return nil, domain.ErrKeyMismatch
		}
		if !sess.Invalidated() {
			return sess, nil
		}
		delete(s.sessions, peer)
	}
	return s.deriveLocked(peer, key)
}

// Lookup returns the session for a seeded peer, deriving it on first use.
func (s *Service) Lookup(peer domain.DeviceID) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blocked[peer] {
		return nil, domain.ErrKeyMismatch
	}
	if sess, ok := s.sessions[peer]; ok {
		if sess.Invalidated() {
			return nil, domain.ErrSessionExpired
		}
		return sess, nil
	}
	adv, ok := s.known[peer]
	if !ok {
		return nil, fmt.Errorf("%s: %w", peer, domain.ErrUnknownPeer)
	}
	return s.deriveLocked(peer, adv.Key)
}

// deriveLocked performs the key agreement and caches the session. Caller
// holds s.mu.
func (s *Service) deriveLocked(peer domain.DeviceID, key domain.X25519Public) (*domain.Session, error) {
	shared, err := s.ids.Agree(key)
	if err != nil {
		return nil, fmt.Errorf("key agreement with %s: %w", peer, err)
	}
	symKey, tag, err := agree.SessionKey(shared, s.ids.Identity().XPub, key)
	crypto.Wipe(shared)
	if err != nil {
		return nil, err
	}

	sess := agree.NewSession(peer, key, symKey, tag)
	s.sessions[peer] = sess
	if _, ok := s.known[peer]; !ok {
		s.known[peer] = domain.Advertisement{Device: peer, Key: key}
	}
	s.log.WithField("peer", peer).Debug("session established")
	return sess, nil
}

// Authorize records out-of-band confirmation of a peer's key, clearing any
// mismatch block and replacing the record.
func (s *Service) Authorize(peer domain.DeviceID, key domain.X25519Public) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocked, peer)
	s.known[peer] = domain.Advertisement{Device: peer, Key: key}
	if sess, ok := s.sessions[peer]; ok && sess.PeerKey != key {
		sess.Invalidate()
		delete(s.sessions, peer)
	}
}

// RecordFailure counts a consecutive authentication failure against sess.
// At the threshold the session is invalidated and must be renegotiated;
// RecordFailure reports whether that happened.
func (s *Service) RecordFailure(sess *domain.Session) bool {
	n := sess.RecordFailure()
	if n < s.threshold {
		return false
	}
	sess.Invalidate()
	s.log.WithFields(logrus.Fields{
		"peer":     sess.Peer,
		"failures": n,
	}).Warn("authentication failure threshold reached; session invalidated")
	return true
}

// Invalidate tears down the session with peer, if any.
func (s *Service) Invalidate(peer domain.DeviceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[peer]; ok {
		sess.Invalidate()
		delete(s.sessions, peer)
	}
}

// Peers lists every seeded, unblocked peer in stable order.
func (s *Service) Peers() []domain.DeviceID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DeviceID, 0, len(s.known))
	for peer := range s.known {
		if !s.blocked[peer] {
			out = append(out, peer)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Compile-time assertion that Service implements domain.SessionService.
var _ domain.SessionService = (*Service)(nil)
