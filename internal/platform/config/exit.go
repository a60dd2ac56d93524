package config

import (
	"fmt"
	"os"
)

// Exitf prints the formatted message to stderr, appends a newline, and
// terminates the process with status 1. Only command entry points should
// call it; library code returns errors instead.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
