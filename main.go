// Package main is the entry point for the Celestial Arcade CLI.
// It provides offline game-asset caching and progression sync through
// the arcade daemon and its command-line surface.
package main

import (
	"celestial/arcade/cmd"
)

// main is the entry point for the arcade CLI application.
// It initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
