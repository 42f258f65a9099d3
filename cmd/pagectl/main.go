package main

import (
	"os"

	"github.com/okian/pagekit/cmd/pagectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
