package main

import (
	"os"

	"github.com/medadvisor/advisor-api/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
