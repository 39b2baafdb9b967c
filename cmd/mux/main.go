// Command mux is the CLI front end for the muxd terminal session
// multiplexer: it starts the daemon, and lists/creates/attaches/kills
// sessions against a running one over the rpc client stub.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
