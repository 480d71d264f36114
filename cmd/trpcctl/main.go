// Command trpcctl resolves the tRPC endpoint of the current environment and
// issues queries and mutations against it.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
