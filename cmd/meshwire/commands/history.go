package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"meshwire/internal/domain"
)

// history <peer>: print a stored conversation. The peer's view includes any
// broadcasts; pass "broadcast" for the broadcast-only view.
func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <peer>",
		Short: "Print a stored conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.Store.Conversation(args[0])
			if err != nil {
				return err
			}
			for _, e := range entries {
				who := e.Sender
				if e.Direction == domain.Outbound {
					who = "me"
				}
				fmt.Printf("%s  %s: %s\n",
					e.Timestamp.Format(time.RFC3339), who, formatBody(e.Message))
			}
			return nil
		},
	}
}
