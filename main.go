package main

import (
	"os"

	"github.com/dendrite-ai/dendrite/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
