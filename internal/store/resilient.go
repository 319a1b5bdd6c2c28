package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"meshwire/internal/domain"
)

const (
	// appendRetries is how many times a failing durable append is retried
	// before the store degrades.
	appendRetries = 3
	// retryBackoff is the initial retry delay; it doubles per attempt.
	retryBackoff = 50 * time.Millisecond
)

// Resilient wraps a durable message store. I/O failures are retried with
// exponential backoff; when they persist, the store degrades to an in-memory
// fallback with one surfaced warning, and no append is ever lost to the
// caller.
type Resilient struct {
	durable  domain.MessageStore
	fallback *MemoryStore
	log      *logrus.Logger
	sleep    func(time.Duration) // test hook

	mu       sync.Mutex
	degraded bool
}

// NewResilient wraps durable with retry-then-degrade behavior. The fallback
// shares the same retention horizon.
func NewResilient(durable domain.MessageStore, retentionDays int, log *logrus.Logger) *Resilient {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resilient{
		durable:  durable,
		fallback: NewMemory(retentionDays),
		log:      log,
		sleep:    time.Sleep,
	}
}

// Degraded reports whether the store has fallen back to memory only.
func (s *Resilient) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Resilient) degrade(cause error) {
	s.mu.Lock()
	already := s.degraded
	s.degraded = true
	s.mu.Unlock()
	if !already {
		s.log.WithError(cause).Warn(
			"durable message store failed; retention degraded to memory only")
	}
}

// Append writes to the durable store, retrying with backoff; on persistent
// failure it degrades and the entry lands in the memory fallback instead.
func (s *Resilient) Append(m domain.StoredMessage) error {
	if !s.Degraded() {
		var err error
		delay := retryBackoff
		for attempt := 0; attempt < appendRetries; attempt++ {
			if err = s.durable.Append(m); err == nil {
				return nil
			}
			s.sleep(delay)
			delay *= 2
		}
		s.degrade(err)
	}
	if err := s.fallback.Append(m); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Conversation serves from whichever store is active.
func (s *Resilient) Conversation(key string) ([]domain.StoredMessage, error) {
	if s.Degraded() {
		return s.fallback.Conversation(key)
	}
	out, err := s.durable.Conversation(key)
	if err != nil {
		s.degrade(err)
		return s.fallback.Conversation(key)
	}
	return out, nil
}

// Prune prunes the active store; the memory fallback is always pruned so a
// later degradation does not resurrect expired entries.
func (s *Resilient) Prune(now time.Time) (int, error) {
	n, _ := s.fallback.Prune(now)
	if s.Degraded() {
		return n, nil
	}
	dn, err := s.durable.Prune(now)
	if err != nil {
		s.degrade(err)
		return n, nil
	}
	return dn, nil
}

// Close closes the durable store.
func (s *Resilient) Close() error { return s.durable.Close() }

// Compile-time assertion that Resilient implements domain.MessageStore.
var _ domain.MessageStore = (*Resilient)(nil)
