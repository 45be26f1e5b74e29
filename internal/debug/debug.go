// Package debug gates diagnostic output behind the BURNDOWN_DEBUG
// environment variable.
package debug

import (
	"fmt"
	"os"
)

var enabled = os.Getenv("BURNDOWN_DEBUG") != ""

func Enabled() bool {
	return enabled
}

func Logf(format string, args ...interface{}) {
	if enabled {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

func Printf(format string, args ...interface{}) {
	if enabled {
		fmt.Printf(format, args...)
	}
}
