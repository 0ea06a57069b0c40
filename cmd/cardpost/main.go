package main

import (
	"os"

	"github.com/set-night/cardpost/cmd/cardpost/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
