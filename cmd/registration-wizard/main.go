package main

import (
	"os"

	"github.com/Lllllllleong/planregistration/cmd/registration-wizard/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
