package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"meshwire/internal/domain"
)

const peersFilename = "peers.json"

// peerRecord is the on-disk form of one advertised peer.
type peerRecord struct {
	Key   domain.X25519Public  `json:"key"`
	EdKey domain.Ed25519Public `json:"ed_key"`
	Sig   []byte               `json:"sig,omitempty"`
}

// PeerFileStore persists discovery advertisements so seeded peers survive a
// restart. Public material only; nothing here is secret.
type PeerFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewPeerFileStore returns a PeerFileStore rooted at dir.
func NewPeerFileStore(dir string) *PeerFileStore {
	return &PeerFileStore{dir: dir}
}

// SavePeer records or replaces one advertisement.
func (s *PeerFileStore) SavePeer(adv domain.Advertisement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readAll()
	if err != nil {
		return err
	}
	m[adv.Device.String()] = peerRecord{
		Key:   adv.Key,
		EdKey: adv.EdKey,
		Sig:   append([]byte(nil), adv.Sig...),
	}
	return s.writeAll(m)
}

// ListPeers returns every stored advertisement.
func (s *PeerFileStore) ListPeers() ([]domain.Advertisement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readAll()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Advertisement, 0, len(m))
	for id, rec := range m {
		out = append(out, domain.Advertisement{
			Device: domain.DeviceID(id),
			Key:    rec.Key,
			EdKey:  rec.EdKey,
			Sig:    rec.Sig,
		})
	}
	return out, nil
}

func (s *PeerFileStore) readAll() (map[string]peerRecord, error) {
	m := make(map[string]peerRecord)
	b, err := os.ReadFile(filepath.Join(s.dir, peersFilename))
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *PeerFileStore) writeAll(m map[string]peerRecord) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, peersFilename)

	f, err := os.CreateTemp(s.dir, peersFilename+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
