// Command duskline is the terminal MUD client described in spec §6: it
// resolves a profile from the config file, drives the protocol pipeline,
// scrollback, and widgets through internal/loop's event loop, and
// optionally publishes a headless control socket.
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
