package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"meshwire/internal/domain"
	"meshwire/internal/transport"
)

// send <peer> <message>: seal a message and emit the wire frame on stdout as
// a base64 line. Pipe it to `meshwire recv` on the peer, or carry it over
// whatever channel connects the two devices. An empty <peer> broadcasts.
func sendCmd() *cobra.Command {
	var opcode uint8

	cmd := &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt a message for a peer and print the frame",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.Messenger(transport.NewLine(nil, cmd.OutOrStdout()))

			var msg domain.Message
			recipient := domain.DeviceID(args[0])
			if cmd.Flags().Changed("opcode") {
				argBytes, err := hex.DecodeString(args[1])
				if err != nil {
					return fmt.Errorf("command args must be hex: %w", err)
				}
				msg = domain.NewCommand("", recipient, opcode, argBytes)
			} else {
				msg = domain.NewText("", recipient, args[1])
			}

			if err := svc.Queue(cmd.Context(), msg); err != nil {
				return err
			}
			if ev := waitTerminal(svc.Events()); ev.Kind == domain.EventFailed {
				return ev.Err
			}
			return nil
		},
	}
	cmd.Flags().Uint8Var(&opcode, "opcode", 0, "send a command with this opcode; <message> is hex args")
	return cmd
}
