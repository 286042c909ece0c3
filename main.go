package main

import (
	"os"

	"github.com/cinemacal/cinemacal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
