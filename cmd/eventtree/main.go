// Command eventtree runs event scenarios and prints their trace or the
// resulting registry snapshot.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "eventtree:", err)
		os.Exit(1)
	}
}
