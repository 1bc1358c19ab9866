package main

import (
	"os"

	"github.com/bigdegenenergy/maker-framework/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
