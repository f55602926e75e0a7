// Package ctlfs serves a small 9P2000 file tree that lets other programs
// drive a viewer: write commands to ctl, read the position from index,
// the current match from search and the table of contents from outline.
package ctlfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"
	"sync/atomic"
	"time"

	"9fans.net/go/plan9"
	"github.com/rjkroege/pageview/internal/logging"
)

// Errors returned by the file server.
var (
	ErrPermission = os.ErrPermission
	ErrNotExist   = os.ErrNotExist
	ErrNotDir     = errors.New("not a directory")
)

const (
	Qdir = iota
	Qctl
	Qindex
	Qsearch
	Qoutline
)

type dirTab struct {
	name string
	t    uint8
	qid  uint64
	perm plan9.Perm
}

var dirtab = []*dirTab{
	{".", plan9.QTDIR, Qdir, 0500 | plan9.DMDIR},
	{"ctl", plan9.QTFILE, Qctl, 0600},
	{"index", plan9.QTFILE, Qindex, 0400},
	{"outline", plan9.QTFILE, Qoutline, 0400},
	{"search", plan9.QTFILE, Qsearch, 0600},
}

// Dir converts the entry to a plan9.Dir owned by user.
func (dt *dirTab) Dir(user string, clock int64) *plan9.Dir {
	return &plan9.Dir{
		Qid: plan9.Qid{
			Path: dt.qid,
			Type: dt.t,
		},
		Mode:  dt.perm,
		Atime: uint32(clock),
		Mtime: uint32(clock),
		Name:  dt.name,
		Uid:   user,
		Gid:   user,
		Muid:  user,
	}
}

type fid struct {
	fid  uint32
	busy bool
	open bool
	qid  plan9.Qid
	dir  *dirTab
}

type fsfunc func(*plan9.Fcall, *fid)

// Server answers 9P requests arriving on one connection. Requests are
// handled one at a time; each one that touches the viewer goes through
// the Target.
type Server struct {
	conn        io.ReadWriteCloser
	target      Target
	docID       string
	fids        map[uint32]*fid
	fcall       []fsfunc
	username    string
	messagesize uint32
	clock       func() int64
	closing     atomic.Bool
}

// New returns a server for conn. docID is reported in the index file.
func New(conn io.ReadWriteCloser, target Target, docID string) *Server {
	s := &Server{
		conn:     conn,
		target:   target,
		docID:    docID,
		fids:     make(map[uint32]*fid),
		username: getuser(),
		clock:    func() int64 { return time.Now().Unix() },
	}
	s.initfcall()
	return s
}

func (s *Server) initfcall() {
	s.fcall = make([]fsfunc, plan9.Tmax)
	s.fcall[plan9.Tflush] = s.flush
	s.fcall[plan9.Tversion] = s.version
	s.fcall[plan9.Tauth] = s.auth
	s.fcall[plan9.Tattach] = s.attach
	s.fcall[plan9.Twalk] = s.walk
	s.fcall[plan9.Topen] = s.open
	s.fcall[plan9.Tcreate] = s.denyAccess
	s.fcall[plan9.Tread] = s.read
	s.fcall[plan9.Twrite] = s.write
	s.fcall[plan9.Tclunk] = s.clunk
	s.fcall[plan9.Tremove] = s.denyAccess
	s.fcall[plan9.Tstat] = s.stat
	s.fcall[plan9.Twstat] = s.denyAccess
}

// Serve handles requests until the connection fails or Close is called.
func (s *Server) Serve() error {
	for {
		fc, err := plan9.ReadFcall(s.conn)
		if err != nil || fc == nil {
			if s.closing.Load() || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("ctlfs: read: %w", err)
		}
		var f *fid
		switch fc.Type {
		case plan9.Tversion, plan9.Tauth, plan9.Tflush:
		case plan9.Tattach:
			f = s.newfid(fc.Fid)
		default:
			f = s.newfid(fc.Fid)
			if !f.busy {
				s.respond(fc, nil, fmt.Errorf("fid not in use"))
				continue
			}
		}
		if int(fc.Type) >= len(s.fcall) || s.fcall[fc.Type] == nil {
			s.respond(fc, nil, fmt.Errorf("bad fcall type %d", fc.Type))
			continue
		}
		s.fcall[fc.Type](fc, f)
	}
}

// Close shuts the connection; Serve returns nil.
func (s *Server) Close() error {
	s.closing.Store(true)
	return s.conn.Close()
}

func (s *Server) respond(x, t *plan9.Fcall, err error) {
	if t == nil {
		t = &plan9.Fcall{}
	}
	if err != nil {
		t.Type = plan9.Rerror
		t.Ename = err.Error()
	} else {
		t.Type = x.Type + 1
	}
	t.Fid = x.Fid
	t.Tag = x.Tag
	if err := plan9.WriteFcall(s.conn, t); err != nil {
		logging.Logger().Warn("ctlfs: write error in respond", "err", err)
	}
}

func (s *Server) version(x *plan9.Fcall, f *fid) {
	var t plan9.Fcall
	s.messagesize = x.Msize
	t.Msize = x.Msize
	if x.Version != "9P2000" {
		s.respond(x, &t, fmt.Errorf("unrecognized 9P version"))
		return
	}
	t.Version = "9P2000"
	s.respond(x, &t, nil)
}

func (s *Server) auth(x *plan9.Fcall, f *fid) {
	s.respond(x, nil, fmt.Errorf("pageview: authentication not required"))
}

// flush has nothing to cancel: every request is answered before the next
// is read.
func (s *Server) flush(x *plan9.Fcall, f *fid) {
	s.respond(x, nil, nil)
}

func (s *Server) attach(x *plan9.Fcall, f *fid) {
	if x.Uname != s.username {
		logging.Logger().Debug("ctlfs: attach from another user", "uname", x.Uname, "want", s.username)
	}
	f.busy = true
	f.open = false
	f.qid = plan9.Qid{Path: Qdir, Type: plan9.QTDIR}
	f.dir = dirtab[0]
	s.respond(x, &plan9.Fcall{Qid: f.qid}, nil)
}

func (s *Server) walk(x *plan9.Fcall, f *fid) {
	var t plan9.Fcall
	if f.open {
		s.respond(x, &t, fmt.Errorf("walk of open file"))
		return
	}
	var nf *fid
	if x.Fid != x.Newfid {
		nf = s.newfid(x.Newfid)
		if nf.busy {
			s.respond(x, &t, fmt.Errorf("newfid already in use"))
			return
		}
		nf.busy = true
		nf.open = false
		nf.dir = f.dir
		nf.qid = f.qid
		f = nf
	}

	wf := &fid{qid: f.qid, dir: f.dir}
	var err error
	for i, wname := range x.Wname {
		if i == plan9.MAXWELEM {
			err = fmt.Errorf("name too long")
			break
		}
		var found bool
		found, err = wf.walk1(wname)
		if err != nil || !found {
			break
		}
		t.Wqid = append(t.Wqid, wf.qid)
	}
	if len(x.Wname) > 0 && len(t.Wqid) == 0 && err == nil {
		err = ErrNotExist
	}

	if err != nil || len(t.Wqid) < len(x.Wname) {
		if nf != nil {
			delete(s.fids, nf.fid)
		}
	} else {
		f.qid = wf.qid
		f.dir = wf.dir
	}
	s.respond(x, &t, err)
}

// walk1 walks f to path name element wname.
func (f *fid) walk1(wname string) (bool, error) {
	if f.qid.Type&plan9.QTDIR == 0 {
		return false, ErrNotDir
	}
	if wname == ".." {
		f.qid = plan9.Qid{Path: Qdir, Type: plan9.QTDIR}
		f.dir = dirtab[0]
		return true, nil
	}
	for _, de := range dirtab[1:] {
		if wname == de.name {
			f.dir = de
			f.qid = plan9.Qid{Path: de.qid, Type: de.t}
			return true, nil
		}
	}
	return false, nil
}

func (s *Server) denyAccess(x *plan9.Fcall, f *fid) {
	s.respond(x, nil, ErrPermission)
}

func (s *Server) open(x *plan9.Fcall, f *fid) {
	var m plan9.Perm
	mode := x.Mode &^ uint8(plan9.OTRUNC|plan9.OCEXEC)
	if mode == plan9.OEXEC || mode&plan9.ORCLOSE != 0 {
		s.denyAccess(x, f)
		return
	}
	switch mode {
	case plan9.OREAD:
		m = 0400
	case plan9.OWRITE:
		m = 0200
	case plan9.ORDWR:
		m = 0600
	default:
		s.denyAccess(x, f)
		return
	}
	if (f.dir.perm&^(plan9.DMDIR|plan9.DMAPPEND))&m != m {
		s.denyAccess(x, f)
		return
	}
	f.open = true
	s.respond(x, &plan9.Fcall{Qid: f.qid}, nil)
}

func (s *Server) read(x *plan9.Fcall, f *fid) {
	var t plan9.Fcall
	if f.qid.Type&plan9.QTDIR != 0 {
		clock := s.clock()
		d := dirtab[1:]
		dirRead(&t, x, func(i int) *plan9.Dir {
			if i < len(d) {
				return d[i].Dir(s.username, clock)
			}
			return nil
		})
		s.respond(x, &t, nil)
		return
	}
	text, err := s.contents(f.qid.Path)
	if err != nil {
		s.respond(x, nil, err)
		return
	}
	readString(&t, x, text)
	s.respond(x, &t, nil)
}

func (s *Server) write(x *plan9.Fcall, f *fid) {
	var err error
	switch f.qid.Path {
	case Qctl:
		err = s.control(string(x.Data))
	case Qsearch:
		err = s.control("search " + strings.TrimSpace(string(x.Data)))
	default:
		err = ErrPermission
	}
	if err != nil {
		s.respond(x, nil, err)
		return
	}
	s.respond(x, &plan9.Fcall{Count: uint32(len(x.Data))}, nil)
}

func (s *Server) clunk(x *plan9.Fcall, f *fid) {
	delete(s.fids, f.fid)
	s.respond(x, nil, nil)
}

func (s *Server) stat(x *plan9.Fcall, f *fid) {
	var t plan9.Fcall
	b, err := marshalDir(f.dir.Dir(s.username, s.clock()))
	if err != nil {
		s.respond(x, nil, err)
		return
	}
	if s.messagesize > 0 && len(b) > int(s.messagesize)-plan9.IOHDRSZ {
		s.respond(x, nil, fmt.Errorf("msize too small"))
		return
	}
	t.Stat = b
	s.respond(x, &t, nil)
}

func (s *Server) newfid(n uint32) *fid {
	ff, ok := s.fids[n]
	if !ok {
		ff = &fid{fid: n}
		s.fids[n] = ff
	}
	return ff
}

func getuser() string {
	u, err := user.Current()
	if err != nil {
		return "none"
	}
	return u.Username
}
