package main

import (
	"os"

	"9fans.net/go/plan9"
	"9fans.net/go/plan9/client"
	"9fans.net/go/plumb"
	"github.com/rjkroege/pageview/viewer"
)

// plumber sends external links to the plumber's web port.
type plumber struct {
	fid *client.Fid
	dir string
}

// openPlumber connects to the plumber. A plumber that is not running is
// not an error: links are then only logged.
func openPlumber() *plumber {
	p := &plumber{}
	p.dir, _ = os.Getwd()
	fid, err := plumb.Open("send", plan9.OWRITE)
	if err != nil {
		viewer.Logger().Debug("plumber not running", "err", err)
		return p
	}
	p.fid = fid
	return p
}

func (p *plumber) send(uri string) {
	if p == nil || p.fid == nil {
		viewer.Logger().Warn("cannot open link: plumber not running", "uri", uri)
		return
	}
	m := &plumb.Message{
		Src:  "pageview",
		Dst:  "web",
		Dir:  p.dir,
		Type: "text",
		Data: []byte(uri),
	}
	if err := m.Send(p.fid); err != nil {
		viewer.Logger().Warn("plumb failed", "uri", uri, "err", err)
	}
}

func (p *plumber) Close() error {
	if p == nil || p.fid == nil {
		return nil
	}
	return p.fid.Close()
}
