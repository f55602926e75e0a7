//go:build !darwin && !dragonfly && !freebsd && !linux && !netbsd && !openbsd && !solaris
// +build !darwin,!dragonfly,!freebsd,!linux,!netbsd,!openbsd,!solaris

package main

import (
	"fmt"
	"runtime"

	"github.com/rjkroege/pageview/viewer"
)

func runTTY(s *session, cfg viewer.Config) error {
	return fmt.Errorf("-tty is not supported on %s", runtime.GOOS)
}
