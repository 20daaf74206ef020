package main

import (
	"os"

	"github.com/jwliu/vantage/cmd/vantage/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
