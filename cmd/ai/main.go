package main

import (
	"os"

	"github.com/ai-cherry/payready-ai/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
