package seal_test

import (
	"errors"
	"testing"

	"meshwire/internal/domain"
	"meshwire/internal/protocol/agree"
	"meshwire/internal/protocol/seal"
)

// pairedSessions returns the sender-side and receiver-side views of one
// derived session, as each peer would hold them.
func pairedSessions(t *testing.T) (a, b *domain.Session) {
	t.Helper()
	var key [32]byte
	var tag [domain.SessionTagSize]byte
	for i := range key {
		key[i] = byte(i)
	}
	copy(tag[:], []byte{0xA, 0xB, 0xC, 0xD})

	var peerKey domain.X25519Public
	a = agree.NewSession("b1b1b1b1b1b1b1b1", peerKey, key, tag)
	b = agree.NewSession("a1a1a1a1a1a1a1a1", peerKey, key, tag)
	return a, b
}

func TestSealOpen_RoundTrip(t *testing.T) {
	a, b := pairedSessions(t)

	env, err := seal.Seal(a, "a1a1a1a1a1a1a1a1", "b1b1b1b1b1b1b1b1", a.NextCounter(), []byte("hello"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	pt, err := seal.Open(b, env)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(pt) != "hello" {
		t.Fatalf("got %q, want %q", pt, "hello")
	}
}

func TestOpen_RejectsEveryBitFlip(t *testing.T) {
	a, b := pairedSessions(t)

	env, err := seal.Seal(a, "a1a1a1a1a1a1a1a1", "b1b1b1b1b1b1b1b1", a.NextCounter(), []byte("integrity"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	for i := 0; i < len(env.Ciphertext)*8; i++ {
		mutated := env
		mutated.Ciphertext = append([]byte(nil), env.Ciphertext...)
		mutated.Ciphertext[i/8] ^= 1 << (i % 8)
		if _, err := seal.Open(b, mutated); !errors.Is(err, domain.ErrAuthenticationFailed) {
			t.Fatalf("ciphertext bit %d: got %v, want ErrAuthenticationFailed", i, err)
		}
	}
	for i := 0; i < domain.TagSize*8; i++ {
		mutated := env
		mutated.Tag[i/8] ^= 1 << (i % 8)
		if _, err := seal.Open(b, mutated); !errors.Is(err, domain.ErrAuthenticationFailed) {
			t.Fatalf("tag bit %d: got %v, want ErrAuthenticationFailed", i, err)
		}
	}
}

func TestOpen_TamperedAddressingFailsAuthentication(t *testing.T) {
	a, b := pairedSessions(t)

	env, err := seal.Seal(a, "a1a1a1a1a1a1a1a1", "b1b1b1b1b1b1b1b1", a.NextCounter(), []byte("to b"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	// Re-addressing a direct envelope as a broadcast must not verify.
	env.Recipient = domain.Broadcast
	if _, err := seal.Open(b, env); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("got %v, want ErrAuthenticationFailed", err)
	}
}

func TestOpen_ReplayDetected(t *testing.T) {
	a, b := pairedSessions(t)

	env, err := seal.Seal(a, "a1a1a1a1a1a1a1a1", "b1b1b1b1b1b1b1b1", a.NextCounter(), []byte("once"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := seal.Open(b, env); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := seal.Open(b, env); !errors.Is(err, domain.ErrReplayDetected) {
		t.Fatalf("got %v, want ErrReplayDetected", err)
	}
}

func TestOpen_FailedAuthDoesNotAdvanceWatermark(t *testing.T) {
	a, b := pairedSessions(t)

	env, err := seal.Seal(a, "a1a1a1a1a1a1a1a1", "b1b1b1b1b1b1b1b1", a.NextCounter(), []byte("genuine"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	// A forged copy with a corrupted tag must not burn the counter.
	forged := env
	forged.Tag[0] ^= 0x01
	if _, err := seal.Open(b, forged); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("forged: got %v, want ErrAuthenticationFailed", err)
	}
	if _, err := seal.Open(b, env); err != nil {
		t.Fatalf("genuine envelope rejected after forgery attempt: %v", err)
	}
}

func TestSeal_InvalidatedSession(t *testing.T) {
	a, _ := pairedSessions(t)
	a.Invalidate()

	_, err := seal.Seal(a, "a1a1a1a1a1a1a1a1", "b1b1b1b1b1b1b1b1", 1, []byte("x"))
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("got %v, want ErrSessionExpired", err)
	}
}

func TestOpen_OutOfOrderWithinWatermarkRejected(t *testing.T) {
	a, b := pairedSessions(t)

	e1, err := seal.Seal(a, "a1a1a1a1a1a1a1a1", "b1b1b1b1b1b1b1b1", a.NextCounter(), []byte("one"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	e2, err := seal.Seal(a, "a1a1a1a1a1a1a1a1", "b1b1b1b1b1b1b1b1", a.NextCounter(), []byte("two"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := seal.Open(b, e2); err != nil {
		t.Fatalf("Open e2: %v", err)
	}
	// e1's counter is now at or below the watermark.
	if _, err := seal.Open(b, e1); !errors.Is(err, domain.ErrReplayDetected) {
		t.Fatalf("got %v, want ErrReplayDetected", err)
	}
}
