// Command confighelper inspects and edits configuration documents through
// the confighelper store and format drivers.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
