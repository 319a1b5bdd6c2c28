package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"meshwire/internal/domain"
	"meshwire/internal/transport"
)

// recv: read base64 frames from stdin until EOF, decrypt them, file them in
// the conversation log, and print the delivered messages.
func recvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recv",
		Short: "Decrypt frames from stdin and deliver them",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.Messenger(transport.NewLine(cmd.InOrStdin(), nil))

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- svc.Run(ctx) }()

			printEvent := func(ev domain.Event) {
				switch ev.Kind {
				case domain.EventDelivered:
					fmt.Printf("%s: %s\n", ev.Peer, formatBody(ev.Message))
				case domain.EventDropped:
					fmt.Fprintf(cmd.ErrOrStderr(), "dropped frame: %v\n", ev.Err)
				}
			}

			for {
				select {
				case ev := <-svc.Events():
					printEvent(ev)
				case err := <-done:
					// Frames were handled before the stream closed; drain
					// whatever notifications are still buffered.
					for {
						select {
						case ev := <-svc.Events():
							printEvent(ev)
						default:
							return err
						}
					}
				}
			}
		},
	}
}
