package store

import (
	"sort"
	"sync"
	"time"

	"meshwire/internal/domain"
)

// MemoryStore keeps conversations in process memory. It is the default when
// no store path is configured and the fallback when the durable store
// degrades.
type MemoryStore struct {
	retention time.Duration

	mu    sync.Mutex
	seq   uint64
	convs map[string][]domain.StoredMessage
}

// NewMemory returns an empty in-memory store with the given retention
// horizon.
func NewMemory(retentionDays int) *MemoryStore {
	return &MemoryStore{
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		convs:     make(map[string][]domain.StoredMessage),
	}
}

// Append files m under its conversation key and assigns the next Seq.
func (s *MemoryStore) Append(m domain.StoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	m.Seq = s.seq
	s.convs[m.ConversationKey] = append(s.convs[m.ConversationKey], m)
	return nil
}

// Conversation returns the ordered view for key. Peer views include
// broadcast entries merged in Seq order; the broadcast key returns the
// broadcast-only view.
func (s *MemoryStore) Conversation(key string) ([]domain.StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]domain.StoredMessage(nil), s.convs[key]...)
	if key != domain.BroadcastKey {
		out = append(out, s.convs[domain.BroadcastKey]...)
		sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	}
	return out, nil
}

// Prune drops entries older than the retention horizon. Entries appended
// after the prune started are never removed because the store mutex orders
// them after the sweep.
func (s *MemoryStore) Prune(now time.Time) (int, error) {
	cutoff := now.Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, msgs := range s.convs {
		kept := msgs[:0]
		for _, m := range msgs {
			if m.Timestamp.After(cutoff) {
				kept = append(kept, m)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(s.convs, key)
			continue
		}
		s.convs[key] = kept
	}
	return removed, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// Compile-time assertion that MemoryStore implements domain.MessageStore.
var _ domain.MessageStore = (*MemoryStore)(nil)
