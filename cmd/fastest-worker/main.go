// Command fastest-worker is the subprocess-tier worker binary
// (spec.md §4.H.2.3): it speaks the line-delimited JSON protocol on its
// stdio and is spawned and supervised by internal/tier/subprocess's
// Supervisor, never invoked directly by a user.
package main

import (
	"os"

	"github.com/fastestgo/fastest/internal/tier/subprocess"
)

func main() {
	if err := subprocess.RunWorker(os.Stdin, os.Stdout); err != nil {
		os.Exit(1)
	}
}
