package main

import (
	"fmt"
	"os"

	"github.com/opd-ai/swarmauth/cmd/swarmauth/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
