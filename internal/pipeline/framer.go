package pipeline

import "github.com/banshee-data/pointcloud/internal/source"

// framer groups packets into frames. A frame closes when it holds
// perFrame packets or, with cutOnReversal, when the beam changes sweep
// direction.
type framer struct {
	perFrame      int
	cutOnReversal bool

	buf       []source.Packet
	lastAngle float64
	dir       int
	seen      bool
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// add appends p and returns any frames it completed.
func (f *framer) add(p source.Packet) [][]source.Packet {
	var out [][]source.Packet

	if f.seen {
		if d := sign(p.AngleDeg - f.lastAngle); d != 0 {
			if f.cutOnReversal && f.dir != 0 && d != f.dir && len(f.buf) > 0 {
				out = append(out, f.buf)
				f.buf = nil
			}
			f.dir = d
		}
	}
	f.lastAngle, f.seen = p.AngleDeg, true

	f.buf = append(f.buf, p)
	if f.perFrame > 0 && len(f.buf) >= f.perFrame {
		out = append(out, f.buf)
		f.buf = nil
	}
	return out
}

// flush returns the partial frame, if any.
func (f *framer) flush() []source.Packet {
	buf := f.buf
	f.buf = nil
	return buf
}
