//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build darwin dragonfly freebsd linux netbsd openbsd solaris

package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/term"
	"github.com/pkg/term/termios"
	"github.com/rjkroege/pageview/viewer"
	"golang.org/x/sys/unix"
)

func runTTY(s *session, cfg viewer.Config) error {
	t, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		return fmt.Errorf("can't open terminal: %v", err)
	}
	defer t.Close()
	defer t.Restore()

	h := &ttyHost{out: t, plumber: openPlumber()}
	defer h.plumber.Close()
	w, ht := ttySize(os.Stdin)
	if err := s.start(cfg, h, w, ht); err != nil {
		return err
	}
	defer s.stop()
	h.c = s.c

	keys := make(chan []rune)
	go func() {
		defer close(keys)
		b := make([]byte, 64)
		for {
			n, err := t.Read(b)
			if err != nil {
				return
			}
			keys <- decodeKeys(b[:n])
		}
	}()
	csignal := make(chan os.Signal, 1)
	signal.Notify(csignal, unix.SIGWINCH, unix.SIGTERM, os.Interrupt)
	defer signal.Stop(csignal)

	h.dirty = true
	for {
		select {
		case <-h.c.Ready():
			h.c.Dispatch()
		case rs, ok := <-keys:
			if !ok {
				return nil
			}
			for _, r := range rs {
				if !key(h.c, r) {
					fmt.Fprint(t, "\r\n")
					return nil
				}
			}
		case sig := <-csignal:
			if sig != unix.SIGWINCH {
				fmt.Fprint(t, "\r\n")
				return nil
			}
			s.resize(ttySize(os.Stdin))
		}
		if h.dirty {
			h.status()
		}
	}
}

// ttySize returns the terminal size in pixels, estimating it from the
// character cells when the terminal does not say.
func ttySize(fp *os.File) (int, int) {
	var ttmode unix.Termios
	if err := termios.Tcgetattr(fp.Fd(), &ttmode); err != nil {
		viewer.Logger().Debug("not a terminal", "err", err)
		return 800, 1000
	}
	ws, err := unix.IoctlGetWinsize(int(fp.Fd()), unix.TIOCGWINSZ)
	switch {
	case err != nil:
		return 800, 1000
	case ws.Xpixel > 0 && ws.Ypixel > 0:
		return int(ws.Xpixel), int(ws.Ypixel)
	case ws.Col > 0 && ws.Row > 0:
		return int(ws.Col) * 8, int(ws.Row) * 16
	}
	return 800, 1000
}
