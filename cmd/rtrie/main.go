// Command rtrie is the operator CLI for the autocomplete index.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/rtrie/cmd/rtrie/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
