package utils

import (
	"flag"
)

// MakePath returns the target of the invocation.
// The first non-flag argument is the project manifest (or, for the discover
// task, the project directory). If no path is provided, it defaults to ".".
func MakePath() (path string) {
	args := flag.Args()
	if len(args) >= 1 {
		return args[0]
	}
	return "."
}
