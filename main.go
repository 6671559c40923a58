package main

import (
	"os"

	"github.com/uptimeatlas/atlascal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
