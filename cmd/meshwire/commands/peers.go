package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"meshwire/internal/domain"
)

func peersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Manage known peers",
	}
	cmd.AddCommand(peersAddCmd(), peersListCmd(), peersAnnounceCmd())
	return cmd
}

// peers add <id> <pubkey-hex>: seed a peer advertisement and persist it.
func peersAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <pubkey-hex>",
		Short: "Record a peer's device identifier and public key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(args[1])
			if err != nil || len(raw) != 32 {
				return fmt.Errorf("public key must be 32 bytes of hex")
			}
			var key domain.X25519Public
			copy(key[:], raw)

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			adv := domain.Advertisement{Device: domain.DeviceID(args[0]), Key: key}
			if err := a.Sessions.Seed(adv); err != nil {
				return err
			}
			if err := a.Peers.SavePeer(adv); err != nil {
				return err
			}
			fmt.Printf("Peer %s added.\n", adv.Device)
			return nil
		},
	}
}

func peersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			for _, p := range a.Sessions.Peers() {
				fmt.Println(p)
			}
			return nil
		},
	}
}

// peers announce: print this device's advertisement for sharing out of band.
func peersAnnounceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "announce",
		Short: "Print this device's identifier and public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			id := a.IDs.Identity()
			fmt.Printf("%s %s\n", id.ID, hex.EncodeToString(id.XPub.Slice()))
			return nil
		},
	}
}
