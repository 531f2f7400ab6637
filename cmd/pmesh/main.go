package main

import (
	"os"

	"github.com/psantana5/promptmesh/cmd/pmesh/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
