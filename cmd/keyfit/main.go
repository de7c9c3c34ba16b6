// Keyfit - rewrites generated prose to hit keyword and length targets
package main

import (
	"os"

	"github.com/HartBrook/keyfit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
