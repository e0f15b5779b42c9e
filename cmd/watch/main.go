package main

import (
	"os"

	"github.com/urmzd/telemetry-hub/cmd/watch/commands"
)

// Version information - set during build
var version = "dev"

func main() {
	commands.SetVersion(version)

	// Errors are printed by the commands themselves
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
