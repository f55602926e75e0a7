package ctlfs

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"9fans.net/go/plan9/client"
	"github.com/fhs/mux9p"
	"github.com/rjkroege/pageview/internal/logging"
)

// Post serves a control server under name in the current plan9
// namespace directory, so that 9p(1) and client.MountService can reach it.
func Post(name string, target Target, docID string) (*Server, error) {
	if name == "" {
		return nil, fmt.Errorf("ctlfs: empty service name")
	}
	ns := client.Namespace()
	if ns == "" {
		return nil, fmt.Errorf("ctlfs: no namespace directory")
	}
	if err := os.MkdirAll(ns, 0700); err != nil {
		return nil, err
	}
	p0, p1 := net.Pipe()
	s := New(p1, target, docID)
	addr := filepath.Join(ns, name)
	go func() {
		if err := mux9p.Listen("unix", addr, p0, nil); err != nil {
			logging.Logger().Warn("ctlfs: 9P multiplexer failed", "addr", addr, "err", err)
			s.Close()
		}
	}()
	go func() {
		if err := s.Serve(); err != nil {
			logging.Logger().Warn("ctlfs: serve", "err", err)
		}
	}()
	logging.Logger().Info("ctlfs: posted", "addr", addr)
	return s, nil
}
