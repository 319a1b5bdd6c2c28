package transport

import (
	"context"
	"fmt"
	"sync"

	"meshwire/internal/domain"
)

// inboxDepth is the per-node buffered frame queue.
const inboxDepth = 64

// Loopback is an in-process frame hub connecting loopback nodes by device
// identifier. A Send is acknowledged once the frame is queued at every
// destination.
type Loopback struct {
	mu    sync.Mutex
	nodes map[domain.DeviceID]*LoopbackNode
}

// NewLoopback returns an empty hub.
func NewLoopback() *Loopback {
	return &Loopback{nodes: make(map[domain.DeviceID]*LoopbackNode)}
}

// Node attaches (or returns) the endpoint for id.
func (h *Loopback) Node(id domain.DeviceID) *LoopbackNode {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n, ok := h.nodes[id]; ok {
		return n
	}
	n := &LoopbackNode{
		hub:   h,
		id:    id,
		inbox: make(chan []byte, inboxDepth),
	}
	h.nodes[id] = n
	return n
}

func (h *Loopback) targets(from, to domain.DeviceID) ([]*LoopbackNode, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !to.IsBroadcast() {
		n, ok := h.nodes[to]
		if !ok {
			return nil, fmt.Errorf("loopback: no route to %s", to)
		}
		return []*LoopbackNode{n}, nil
	}
	out := make([]*LoopbackNode, 0, len(h.nodes))
	for id, n := range h.nodes {
		if id != from {
			out = append(out, n)
		}
	}
	return out, nil
}

// LoopbackNode is one endpoint on the hub.
type LoopbackNode struct {
	hub   *Loopback
	id    domain.DeviceID
	inbox chan []byte
}

// Send queues a copy of frame at the destination (every other node for a
// broadcast) and acknowledges. A full destination queue blocks until space
// frees or ctx is done.
func (n *LoopbackNode) Send(ctx context.Context, to domain.DeviceID, frame []byte) error {
	targets, err := n.hub.targets(n.id, to)
	if err != nil {
		return err
	}
	for _, target := range targets {
		cp := append([]byte(nil), frame...)
		select {
		case target.inbox <- cp:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Frames returns this node's inbound frame stream. The returned channel
// closes when ctx is done; a subsequent call resumes from the shared queue.
func (n *LoopbackNode) Frames(ctx context.Context) (<-chan []byte, error) {
	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case frame := <-n.inbox:
				select {
				case out <- frame:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Compile-time assertion that LoopbackNode implements domain.Transport.
var _ domain.Transport = (*LoopbackNode)(nil)
