package domain

import (
	"sync"
	"time"
)

// Session is the pairwise state shared with one peer: the derived symmetric
// key, the nonce session tag, and the send/receive counters. The shared key
// is derived locally on both sides and never transmitted.
//
// Counter and failure accounting is serialized by the session's own mutex,
// so concurrent sends on one session cannot reuse a nonce.
type Session struct {
	Peer      DeviceID
	PeerKey   X25519Public
	Key       [32]byte
	SessTag   [SessionTagSize]byte
	CreatedAt time.Time

	mu           sync.Mutex
	sendCounter  uint64
	recvHigh     uint64
	authFailures int
	invalidated  bool
}

// NextCounter reserves and returns the next send counter. Counters start at
// 1 so the zero value is never a valid nonce suffix.
func (s *Session) NextCounter() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendCounter++
	return s.sendCounter
}

// CheckReplay returns ErrReplayDetected unless counter strictly exceeds the
// receive high watermark. It does not advance the watermark; call Advance
// after the envelope authenticates.
func (s *Session) CheckReplay(counter uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if counter <= s.recvHigh {
		return ErrReplayDetected
	}
	return nil
}

// Advance raises the receive high watermark to counter. Called only after a
// successful authenticated decrypt, so a forged counter cannot block
// legitimate traffic.
func (s *Session) Advance(counter uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if counter > s.recvHigh {
		s.recvHigh = counter
	}
	s.authFailures = 0
}

// RecordFailure counts a consecutive authentication failure and returns the
// new count.
func (s *Session) RecordFailure() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authFailures++
	return s.authFailures
}

// Invalidate marks the session unusable; further use reports
// ErrSessionExpired until it is renegotiated.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = true
}

// Invalidated reports whether the session has been torn down.
func (s *Session) Invalidated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidated
}
