package main

import (
	"os"
)

func main() {
	if err := newRootCommand(newCLI()).Execute(); err != nil {
		os.Exit(1)
	}
}
