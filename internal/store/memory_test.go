package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshwire/internal/domain"
)

const (
	peerA = "a1a1a1a1a1a1a1a1"
	peerB = "b1b1b1b1b1b1b1b1"
)

func storedText(sender, recipient domain.DeviceID, content string, dir domain.Direction) domain.StoredMessage {
	m := domain.NewText(sender, recipient, content)
	return domain.StoredMessage{
		Message:         m,
		Direction:       dir,
		ConversationKey: domain.ConversationKeyFor(m, dir),
	}
}

func TestMemory_ConversationOrder(t *testing.T) {
	s := NewMemory(7)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(storedText(peerA, peerB, fmt.Sprintf("msg %d", i), domain.Inbound)))
	}

	conv, err := s.Conversation(peerA)
	require.NoError(t, err)
	require.Len(t, conv, 5)
	for i, m := range conv {
		assert.Equal(t, fmt.Sprintf("msg %d", i), m.Body.(domain.Text).Content)
		assert.Equal(t, uint64(i+1), m.Seq)
	}
}

func TestMemory_BroadcastVisibleEverywhere(t *testing.T) {
	s := NewMemory(7)

	require.NoError(t, s.Append(storedText(peerA, peerB, "direct", domain.Inbound)))
	require.NoError(t, s.Append(storedText(peerA, domain.Broadcast, "to all", domain.Inbound)))

	// The broadcast shows up in the peer view, interleaved by Seq...
	conv, err := s.Conversation(peerA)
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, "direct", conv[0].Body.(domain.Text).Content)
	assert.Equal(t, "to all", conv[1].Body.(domain.Text).Content)

	// ...in the dedicated broadcast view...
	bc, err := s.Conversation(domain.BroadcastKey)
	require.NoError(t, err)
	require.Len(t, bc, 1)

	// ...and in any other peer's view, while the direct message does not.
	other, err := s.Conversation(peerB)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "to all", other[0].Body.(domain.Text).Content)
}

func TestMemory_RetentionBoundary(t *testing.T) {
	s := NewMemory(7)

	m := storedText(peerA, peerB, "old enough", domain.Inbound)
	appendedAt := time.Now().UTC()
	m.Timestamp = appendedAt
	require.NoError(t, s.Append(m))

	// Just inside the horizon: a prune keeps it.
	_, err := s.Prune(appendedAt.Add(7*24*time.Hour - time.Second))
	require.NoError(t, err)
	conv, err := s.Conversation(peerA)
	require.NoError(t, err)
	require.Len(t, conv, 1)

	// Just past the horizon: a prune removes it.
	n, err := s.Prune(appendedAt.Add(7*24*time.Hour + time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	conv, err = s.Conversation(peerA)
	require.NoError(t, err)
	assert.Empty(t, conv)

	// Idempotent.
	n, err = s.Prune(appendedAt.Add(7*24*time.Hour + time.Second))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemory_ConcurrentAppendAndPrune(t *testing.T) {
	s := NewMemory(7)
	now := time.Now().UTC()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m := storedText(peerA, peerB, "fresh", domain.Inbound)
				m.Timestamp = now
				_ = s.Append(m)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, _ = s.Prune(now)
		}
	}()
	wg.Wait()

	// Every append is fresh relative to the prune cutoff, so none may be
	// lost to a concurrent prune.
	conv, err := s.Conversation(peerA)
	require.NoError(t, err)
	assert.Len(t, conv, 400)
}
