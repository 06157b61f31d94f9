// Package main is the entry point of the ddrawry server.
// It sets up and starts the server by calling initialization functions from the internal package.
package main

import (
	"github.com/team-ddrawry/ddrawry-server/internal"
)

func main() {
	internal.Init()
}
