// Command envtrack propagates beam envelopes through linac lattices.
package main

import (
	"log"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("envtrack: %v", err)
		os.Exit(1)
	}
}
