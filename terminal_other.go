//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !windows

package deferlog

import "io"

func isTerminal(io.Writer) bool { return false }
