// Command refinery runs generate-validate-verify workflows that produce
// hardware design modules through a reasoning collaborator.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
