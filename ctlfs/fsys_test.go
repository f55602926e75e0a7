package ctlfs

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"9fans.net/go/plan9"
	"github.com/google/go-cmp/cmp"
)

func errorFcall(err error) *plan9.Fcall {
	return &plan9.Fcall{
		Type:  plan9.Rerror,
		Ename: err.Error(),
	}
}

type mockConn struct {
	bytes.Buffer
}

func (mc *mockConn) Close() error { return nil }

func (mc *mockConn) ReadFcall(t *testing.T) *plan9.Fcall {
	t.Helper()

	fc, err := plan9.ReadFcall(mc)
	if err != nil {
		t.Fatalf("failed to read Fcall: %v", err)
	}
	return fc
}

func newMockServer() (*Server, *mockConn) {
	mc := new(mockConn)
	s := New(mc, nil, "")
	s.username = "gopher"
	s.clock = func() int64 { return 1257894000 }
	return s, mc
}

func TestServerVersion(t *testing.T) {
	for _, tc := range []struct {
		version string
		want    plan9.Fcall
	}{
		{"9P2000", plan9.Fcall{
			Type:    plan9.Rversion,
			Version: "9P2000",
			Msize:   8192,
		}},
		{"9P2000.u", plan9.Fcall{
			Type:  plan9.Rerror,
			Ename: "unrecognized 9P version",
		}},
	} {
		t.Run(tc.version, func(t *testing.T) {
			s, mc := newMockServer()
			s.version(&plan9.Fcall{
				Type:    plan9.Tversion,
				Version: tc.version,
				Msize:   8192,
			}, nil)

			if got, want := mc.ReadFcall(t), &tc.want; !cmp.Equal(got, want) {
				t.Fatalf("got response %v; want %v", got, want)
			}
		})
	}
}

func TestServerAuth(t *testing.T) {
	s, mc := newMockServer()
	s.auth(&plan9.Fcall{Type: plan9.Tauth}, nil)

	want := errorFcall(fmt.Errorf("pageview: authentication not required"))
	if got := mc.ReadFcall(t); !cmp.Equal(got, want) {
		t.Fatalf("got response %v; want %v", got, want)
	}
}

func TestServerWalk(t *testing.T) {
	s, mc := newMockServer()
	s.attach(&plan9.Fcall{Type: plan9.Tattach, Fid: 1, Uname: "gopher"}, s.newfid(1))
	root := plan9.Qid{Path: Qdir, Type: plan9.QTDIR}
	if got, want := mc.ReadFcall(t), (&plan9.Fcall{Type: plan9.Rattach, Qid: root}); !cmp.Equal(got, want) {
		t.Fatalf("attach: got %v; want %v", got, want)
	}

	for _, tc := range []struct {
		name   string
		fid    uint32
		newfid uint32
		wname  []string
		want   *plan9.Fcall
	}{
		{"File", 1, 2, []string{"ctl"}, &plan9.Fcall{
			Type: plan9.Rwalk,
			Wqid: []plan9.Qid{{Path: Qctl, Type: plan9.QTFILE}},
		}},
		{"DotDot", 1, 3, []string{"..", "outline"}, &plan9.Fcall{
			Type: plan9.Rwalk,
			Wqid: []plan9.Qid{root, {Path: Qoutline, Type: plan9.QTFILE}},
		}},
		{"Missing", 1, 4, []string{"nope"}, errorFcall(ErrNotExist)},
		{"FromFile", 2, 5, []string{"index"}, errorFcall(ErrNotDir)},
		{"NewfidInUse", 1, 2, []string{"index"}, errorFcall(fmt.Errorf("newfid already in use"))},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s.walk(&plan9.Fcall{Type: plan9.Twalk, Fid: tc.fid, Newfid: tc.newfid, Wname: tc.wname}, s.fids[tc.fid])
			if got := mc.ReadFcall(t); !cmp.Equal(got, tc.want) {
				t.Errorf("got %v; want %v", got, tc.want)
			}
		})
	}
	if _, ok := s.fids[4]; ok {
		t.Errorf("failed walk left newfid 4 allocated")
	}
	if got := s.fids[2].qid.Path; got != Qctl {
		t.Errorf("fid 2 walked to %d, want ctl", got)
	}
}

func TestServerOpen(t *testing.T) {
	for _, tc := range []struct {
		name string
		qid  uint64
		mode uint8
		ok   bool
	}{
		{"ReadIndex", Qindex, plan9.OREAD, true},
		{"WriteIndex", Qindex, plan9.OWRITE, false},
		{"RdwrCtl", Qctl, plan9.ORDWR | plan9.OTRUNC, true},
		{"ExecCtl", Qctl, plan9.OEXEC, false},
		{"RemoveOnClose", Qsearch, plan9.OREAD | plan9.ORCLOSE, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, mc := newMockServer()
			f := s.newfid(7)
			f.busy = true
			for _, d := range dirtab {
				if d.qid == tc.qid {
					f.dir = d
				}
			}
			f.qid = plan9.Qid{Path: tc.qid, Type: plan9.QTFILE}
			s.open(&plan9.Fcall{Type: plan9.Topen, Fid: 7, Mode: tc.mode}, f)
			got := mc.ReadFcall(t)
			if tc.ok {
				want := &plan9.Fcall{Type: plan9.Ropen, Qid: f.qid}
				if !cmp.Equal(got, want) || !f.open {
					t.Errorf("got %v; want %v", got, want)
				}
				return
			}
			if want := errorFcall(ErrPermission); !cmp.Equal(got, want) || f.open {
				t.Errorf("got %v; want %v", got, want)
			}
		})
	}
}

func TestServerStat(t *testing.T) {
	s, mc := newMockServer()
	s.messagesize = 8192
	f := s.newfid(1)
	f.busy = true
	f.dir = dirtab[1]
	s.stat(&plan9.Fcall{Type: plan9.Tstat, Fid: 1}, f)
	got := mc.ReadFcall(t)
	if got.Type != plan9.Rstat {
		t.Fatalf("got %v; want Rstat", got)
	}
	d, err := plan9.UnmarshalDir(got.Stat)
	if err != nil {
		t.Fatal(err)
	}
	want := dirtab[1].Dir("gopher", 1257894000)
	if !cmp.Equal(d, want) {
		t.Errorf("stat got %v; want %v", d, want)
	}

	s.messagesize = 30
	s.stat(&plan9.Fcall{Type: plan9.Tstat, Fid: 1}, f)
	if got, want := mc.ReadFcall(t), errorFcall(fmt.Errorf("msize too small")); !cmp.Equal(got, want) {
		t.Errorf("small msize: got %v; want %v", got, want)
	}

	s.messagesize = 8192
	s.username = strings.Repeat("u", 1<<16)
	s.stat(&plan9.Fcall{Type: plan9.Tstat, Fid: 1}, f)
	if got, want := mc.ReadFcall(t), errorFcall(plan9.ProtocolError("string too long")); !cmp.Equal(got, want) {
		t.Errorf("oversized uid: got %v; want %v", got, want)
	}
}

func TestServerDenied(t *testing.T) {
	for _, typ := range []uint8{plan9.Tcreate, plan9.Tremove, plan9.Twstat} {
		s, mc := newMockServer()
		s.fcall[typ](&plan9.Fcall{Type: typ, Fid: 1}, nil)
		if got, want := mc.ReadFcall(t), errorFcall(ErrPermission); !cmp.Equal(got, want) {
			t.Errorf("type %d: got %v; want %v", typ, got, want)
		}
	}
}

func TestReadString(t *testing.T) {
	tt := []struct {
		ofcall, ifcall plan9.Fcall
		src            string
	}{
		{
			plan9.Fcall{Data: nil, Count: 0},
			plan9.Fcall{Offset: 0, Count: 10},
			"",
		},
		{
			plan9.Fcall{Data: nil, Count: 0},
			plan9.Fcall{Offset: 100, Count: 10},
			"abcd",
		},
		{
			plan9.Fcall{Data: []byte("abcd"), Count: 4},
			plan9.Fcall{Offset: 0, Count: 10},
			"abcd",
		},
		{
			plan9.Fcall{Data: []byte("abcd"), Count: 4},
			plan9.Fcall{Offset: 3, Count: 4},
			"xxxabcdzzz",
		},
	}
	for _, tc := range tt {
		var got plan9.Fcall
		readString(&got, &tc.ifcall, tc.src)
		if diff := cmp.Diff(&tc.ofcall, &got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	}
}

// unmarshalDirs decodes the directory entries of a read.
func unmarshalDirs(t *testing.T, b []byte) []string {
	t.Helper()
	var names []string
	for len(b) > 2 {
		n := int(b[0]) | int(b[1])<<8
		d, err := plan9.UnmarshalDir(b[:2+n])
		if err != nil {
			t.Fatalf("bad directory entry: %v", err)
		}
		names = append(names, d.Name)
		b = b[2+n:]
	}
	if len(b) != 0 {
		t.Fatalf("partial directory entry")
	}
	return names
}

func TestDirRead(t *testing.T) {
	dirs := []*plan9.Dir{{Name: "one"}, {Name: "two"}, {Name: "three"}}
	gen := func(i int) *plan9.Dir {
		if i < len(dirs) {
			return dirs[i]
		}
		return nil
	}
	b, _ := dirs[0].Bytes()
	size := uint32(len(b))

	var ofcall plan9.Fcall
	dirRead(&ofcall, &plan9.Fcall{Count: 8192}, gen)
	if diff := cmp.Diff([]string{"one", "two", "three"}, unmarshalDirs(t, ofcall.Data)); diff != "" {
		t.Errorf("full read mismatch (-want +got):\n%s", diff)
	}

	// A window that fits only one entry, starting at the second.
	dirRead(&ofcall, &plan9.Fcall{Offset: uint64(size), Count: size + 2}, gen)
	if diff := cmp.Diff([]string{"two"}, unmarshalDirs(t, ofcall.Data)); diff != "" {
		t.Errorf("windowed read mismatch (-want +got):\n%s", diff)
	}
}
