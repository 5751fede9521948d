// Command quotectl prices a car rental from the command line using the same
// calculator as the API.
package main

import (
	"fmt"
	"os"
	"time"
)

func main() {
	if err := newRootCmd(time.Now).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
