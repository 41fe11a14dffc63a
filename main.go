package main

import (
	"os"

	"github.com/grovetools/treenote/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
