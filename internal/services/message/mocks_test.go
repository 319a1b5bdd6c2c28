package message_test

import (
	"context"
	"sync"

	"meshwire/internal/domain"
)

// gatedTransport blocks every Send until release is called, acknowledging
// one blocked send per release. It records nothing and delivers nowhere.
type gatedTransport struct {
	mu      sync.Mutex
	waiting int
	gate    chan struct{}
}

func newGatedTransport() *gatedTransport {
	return &gatedTransport{gate: make(chan struct{})}
}

func (t *gatedTransport) Send(ctx context.Context, to domain.DeviceID, frame []byte) error {
	t.mu.Lock()
	t.waiting++
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.waiting--
		t.mu.Unlock()
	}()
	select {
	case <-t.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *gatedTransport) Frames(ctx context.Context) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (t *gatedTransport) release() { t.gate <- struct{}{} }

func (t *gatedTransport) inFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waiting
}
