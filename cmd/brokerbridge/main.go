package main

import (
	"os"

	"github.com/miladsoleymani/brokerbridge/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
