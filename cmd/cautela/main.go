// Command cautela runs the equipment custody server and its maintenance
// commands.
package main

import "os"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
