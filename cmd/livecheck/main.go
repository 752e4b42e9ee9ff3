// Command livecheck runs the signal dispatcher with its HTTP API and
// provides client subcommands for producers.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
