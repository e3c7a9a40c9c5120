package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		newPrinter(os.Stdout, os.Stderr).Failure(err)
		os.Exit(1)
	}
}
