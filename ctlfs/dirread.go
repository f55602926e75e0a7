package ctlfs

import "9fans.net/go/plan9"

// readString answers a read of ifcall's offset and count from src, as
// readstr(3) does. Runes may be split across reads.
func readString(ofcall, ifcall *plan9.Fcall, src string) {
	off := ifcall.Offset
	if off >= uint64(len(src)) {
		ofcall.Count = 0
		ofcall.Data = nil
		return
	}
	end := min(off+uint64(ifcall.Count), uint64(len(src)))
	ofcall.Data = []byte(src[off:end])
	ofcall.Count = uint32(len(ofcall.Data))
}

// dirRead fills ofcall.Data with the whole directory entries from gen
// that fall within the requested window. gen returns nil past the end.
func dirRead(ofcall, ifcall *plan9.Fcall, gen func(i int) *plan9.Dir) int {
	o := ifcall.Offset
	e := ifcall.Offset + uint64(ifcall.Count)
	data := make([]byte, 0, ifcall.Count)
	pos := uint64(0)
	i := 0
	for ; pos < e; i++ {
		d := gen(i)
		if d == nil {
			break
		}
		b, err := marshalDir(d)
		if err != nil {
			break
		}
		if pos >= o {
			if len(b) > cap(data)-len(data) {
				break
			}
			data = append(data, b...)
		}
		pos += uint64(len(b))
	}
	ofcall.Data = data
	ofcall.Count = uint32(len(data))
	return i
}

// marshalDir returns the wire form of d. plan9.Dir.Bytes panics on fields
// longer than 64K; that becomes an error here.
func marshalDir(d *plan9.Dir) (b []byte, err error) {
	defer func() {
		if v := recover(); v != nil {
			e, ok := v.(plan9.ProtocolError)
			if !ok {
				panic(v)
			}
			b, err = nil, e
		}
	}()
	return d.Bytes()
}
