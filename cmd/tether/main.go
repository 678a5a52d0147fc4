package main

import (
	"os"

	"github.com/tetherhq/tether/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
