package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"meshwire/internal/app"
	"meshwire/internal/domain"
)

var (
	home       string
	passphrase string
	storePath  string
	verbose    bool
)

func Execute() error {
	root := &cobra.Command{
		Use:          "meshwire",
		Short:        "Peer-to-peer encrypted messaging over pluggable transports",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.meshwire)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the identity file")
	root.PersistentFlags().StringVar(&storePath, "store", "", `message store path ("memory" disables persistence)`)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(initCmd(), fingerprintCmd(), peersCmd(),
		sendCmd(), recvCmd(), historyCmd(), demoCmd())
	return root.Execute()
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

// openApp resolves the home directory, loads configuration, applies flag
// overrides, and builds the dependency graph.
func openApp() (*app.App, error) {
	dir := home
	if dir == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(h, ".meshwire")
	}

	cfg := app.Load(dir)
	if passphrase != "" {
		cfg.Passphrase = passphrase
	}
	if cfg.Passphrase == "" {
		return nil, fmt.Errorf("passphrase required (-p or MESHWIRE_PASSPHRASE)")
	}
	switch storePath {
	case "":
	case "memory":
		cfg.StorePath = ""
	default:
		cfg.StorePath = storePath
	}
	return app.New(cfg, newLogger())
}

// waitTerminal blocks until an outgoing message reaches Acknowledged or
// Failed.
func waitTerminal(events <-chan domain.Event) domain.Event {
	for ev := range events {
		switch ev.Kind {
		case domain.EventAcknowledged, domain.EventFailed:
			return ev
		}
	}
	return domain.Event{Kind: domain.EventFailed, Err: fmt.Errorf("event stream closed")}
}

// formatBody renders a message payload for the terminal.
func formatBody(m domain.Message) string {
	switch b := m.Body.(type) {
	case domain.Text:
		return b.Content
	case domain.Command:
		return fmt.Sprintf("command 0x%02x %x", b.Opcode, b.Args)
	default:
		return "?"
	}
}
