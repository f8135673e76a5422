package main

import (
	"os"

	"github.com/saeedzahedi/pingcheck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
