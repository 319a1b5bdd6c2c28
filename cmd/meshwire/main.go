package main

import (
	"os"

	"meshwire/cmd/meshwire/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
