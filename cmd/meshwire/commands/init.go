package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate the device identity and store it securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			id := a.IDs.Identity()
			fmt.Printf("Device ID:   %s\nFingerprint: %s\n", id.ID, a.IDs.Fingerprint())
			return nil
		},
	}
}
