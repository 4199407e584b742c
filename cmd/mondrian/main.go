package main

import (
	"os"

	"github.com/marcin-skalski/mondrian/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
