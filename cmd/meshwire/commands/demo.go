package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"meshwire/internal/app"
	"meshwire/internal/domain"
	"meshwire/internal/services/message"
	"meshwire/internal/transport"
)

// demo: three in-process devices on a loopback hub exchange a direct message
// and a broadcast, printing the event stream as it happens.
func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run an in-process exchange between three devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context())
		},
	}
}

type demoNode struct {
	name string
	app  *app.App
	svc  *message.Service
}

func newDemoNode(hub *transport.Loopback, name string) (*demoNode, func(), error) {
	dir, err := os.MkdirTemp("", "meshwire-demo-*")
	if err != nil {
		return nil, nil, err
	}
	cfg := app.DefaultConfig(dir)
	cfg.Passphrase = "demo"
	cfg.StorePath = "" // ephemeral history
	a, err := app.New(cfg, newLogger())
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, nil, err
	}
	cleanup := func() {
		_ = a.Close()
		_ = os.RemoveAll(dir)
	}
	n := &demoNode{
		name: name,
		app:  a,
		svc:  a.Messenger(hub.Node(a.IDs.Identity().ID)),
	}
	return n, cleanup, nil
}

func runDemo(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	hub := transport.NewLoopback()
	var nodes []*demoNode
	for _, name := range []string{"alice", "bob", "carol"} {
		n, cleanup, err := newDemoNode(hub, name)
		if err != nil {
			return err
		}
		defer cleanup()
		nodes = append(nodes, n)
	}
	alice, bob, carol := nodes[0], nodes[1], nodes[2]

	// Everyone hears everyone's advertisement.
	for _, a := range nodes {
		for _, b := range nodes {
			if a != b {
				if err := a.app.Sessions.Seed(b.app.Sessions.Advertisement()); err != nil {
					return err
				}
			}
		}
		fmt.Printf("%s is %s\n", a.name, a.app.IDs.Identity().ID)
	}

	for _, n := range []*demoNode{bob, carol} {
		n := n
		go func() { _ = n.svc.Run(ctx) }()
	}

	// Direct message alice -> bob.
	direct := domain.NewText("", bob.app.IDs.Identity().ID, "hello")
	if err := alice.svc.Queue(ctx, direct); err != nil {
		return err
	}
	if err := expect(ctx, bob, domain.EventDelivered); err != nil {
		return err
	}
	if err := expect(ctx, alice, domain.EventAcknowledged); err != nil {
		return err
	}

	// Broadcast alice -> everyone.
	if err := alice.svc.Queue(ctx, domain.NewText("", domain.Broadcast, "hello, everyone")); err != nil {
		return err
	}
	if err := expect(ctx, bob, domain.EventDelivered); err != nil {
		return err
	}
	if err := expect(ctx, carol, domain.EventDelivered); err != nil {
		return err
	}
	if err := expect(ctx, alice, domain.EventAcknowledged); err != nil {
		return err
	}

	// Bob's view of the alice conversation includes the broadcast.
	hist, err := bob.app.Store.Conversation(alice.app.IDs.Identity().ID.String())
	if err != nil {
		return err
	}
	fmt.Printf("\nbob's log of the alice conversation:\n")
	for _, e := range hist {
		fmt.Printf("  %s: %s\n", e.Sender, formatBody(e.Message))
	}
	return nil
}

// expect waits for the next matching event on a node and narrates it.
func expect(ctx context.Context, n *demoNode, kind domain.EventKind) error {
	for {
		select {
		case ev := <-n.svc.Events():
			if ev.Kind != kind {
				continue
			}
			switch kind {
			case domain.EventDelivered:
				fmt.Printf("%s <- %s: %s\n", n.name, ev.Peer, formatBody(ev.Message))
			case domain.EventAcknowledged:
				fmt.Printf("%s: message %s acknowledged\n", n.name, ev.Message.ID)
			}
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%s: timed out waiting for %s event", n.name, kind)
		}
	}
}
