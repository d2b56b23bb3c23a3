package dmf

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/QEStudios/TrackerImporter/song"
)

// bytesBuilder assembles test files field by field.
type bytesBuilder struct {
	buf   []byte
	marks map[string]int
}

func (b *bytesBuilder) u8(vs ...uint8) *bytesBuilder {
	b.buf = append(b.buf, vs...)
	return b
}

func (b *bytesBuilder) i8(v int8) *bytesBuilder {
	return b.u8(uint8(v))
}

func (b *bytesBuilder) i16(vs ...int16) *bytesBuilder {
	for _, v := range vs {
		b.buf = binary.LittleEndian.AppendUint16(b.buf, uint16(v))
	}
	return b
}

func (b *bytesBuilder) i32(vs ...int32) *bytesBuilder {
	for _, v := range vs {
		b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(v))
	}
	return b
}

func (b *bytesBuilder) raw(p []byte) *bytesBuilder {
	b.buf = append(b.buf, p...)
	return b
}

func (b *bytesBuilder) pstr(s string) *bytesBuilder {
	return b.u8(uint8(len(s))).raw([]byte(s))
}

// mark remembers the current offset under name.
func (b *bytesBuilder) mark(name string) {
	if b.marks == nil {
		b.marks = make(map[string]int)
	}
	b.marks[name] = len(b.buf)
}

type writer interface {
	write(b *bytesBuilder, version uint8)
}

type opSpec struct {
	am, ar, dam, dr, dvb, egt, ksl, ksr, mult, rr, sl, sus, tl, vib, ws uint8
	dt2, rs, dt, d2r, ssg                                              uint8
}

// testOp returns an operator whose fields identify operator j.
func testOp(j int) opSpec {
	return opSpec{
		am: 1, ar: uint8(20 + j), dr: 5, egt: 1, ksl: 2, ksr: 1,
		mult: uint8(j + 1), rr: 7, sl: 3, tl: uint8(10 + j),
		dt2: uint8(j), rs: 3, dt: 2, d2r: 4, ssg: 8,
	}
}

func (o opSpec) write(b *bytesBuilder, v uint8) {
	switch {
	case v < 0x11:
		b.u8(o.am, o.ar, o.dam, o.dr, o.dvb, o.egt|o.ksr<<1, o.ksl, o.mult, o.rr, o.sl, o.sus, o.tl, o.vib, o.ws)
	case v < 0x13:
		b.u8(o.am, o.ar, o.dam, o.dr, o.dvb, o.egt, o.ksl, o.ksr, o.mult, o.rr, o.sl, o.sus, o.tl, o.vib, o.ws)
	default:
		b.u8(o.am, o.ar, o.dr, o.mult, o.rr, o.sl, o.tl, o.dt2)
	}
	b.u8(o.rs, o.dt, o.d2r, o.ssg)
}

type fmSpec struct {
	name                      string
	alg, fb, fms, ams, opFlag uint8
	ops                       []opSpec
}

// newFMSpec returns a patch with n test operators.
func newFMSpec(name string, n int) fmSpec {
	f := fmSpec{name: name, alg: 2, fb: 5, fms: 1, ams: 2, opFlag: 1}
	if n == 2 {
		f.opFlag = 0
	}
	for j := 0; j < n; j++ {
		f.ops = append(f.ops, testOp(j))
	}
	return f
}

func (f fmSpec) write(b *bytesBuilder, v uint8) {
	b.pstr(f.name)
	if v >= 0x0b {
		b.u8(1)
	}
	if v < 0x13 {
		b.u8(f.alg, 0, f.fb, 0, f.fms, 0, f.opFlag, f.ams)
	} else {
		b.u8(f.alg, f.fb, f.fms, f.ams)
	}
	for _, op := range f.ops {
		op.write(b, v)
	}
}

type stdSpec struct {
	name                 string
	noVol                bool
	vol, arp, duty, wave []int32
	arpMode              uint8
	c64, gb              bool
	volIsCutoff          bool
}

func writeMacro(b *bytesBuilder, values []int32) {
	b.u8(uint8(len(values)))
	b.i32(values...)
	if len(values) > 0 {
		b.i8(0)
	}
}

func (s stdSpec) write(b *bytesBuilder, v uint8) {
	b.pstr(s.name)
	if v >= 0x0b {
		b.u8(0)
	}
	if !s.noVol {
		writeMacro(b, s.vol)
	}
	b.mark("arp macro length")
	writeMacro(b, s.arp)
	if v >= 0x10 {
		b.u8(s.arpMode)
	}
	writeMacro(b, s.duty)
	writeMacro(b, s.wave)
	if s.c64 {
		cutoff := uint8(0)
		if s.volIsCutoff {
			cutoff = 1
		}
		b.u8(1, 0, 1, 0, 2, 3, 4, 5, 50, 0, 0, 1)
		if v < 0x11 {
			b.i32(int32(cutoff))
		} else {
			b.u8(cutoff)
		}
		b.u8(1, 7, 100, 0, 0, 1, 0)
	}
	if s.gb {
		b.u8(12, 1, 3, 40)
	}
}

type sampleSpec struct {
	name                    string
	length                  int32
	rate, pitch, amp, depth uint8
	cutStart, cutEnd        int32
	payload                 []byte
}

// pcmSample returns an unmodified 16-bit sample holding words.
func pcmSample(name string, words ...int16) sampleSpec {
	var b bytesBuilder
	b.i16(words...)
	return sampleSpec{
		name:    name,
		length:  int32(len(words)),
		rate:    5,
		pitch:   5,
		amp:     50,
		depth:   16,
		cutEnd:  int32(len(words)),
		payload: b.buf,
	}
}

func (s sampleSpec) write(b *bytesBuilder, v uint8) {
	b.mark("sample length")
	b.i32(s.length)
	if v >= 0x17 {
		b.mark("sample name")
		b.pstr(s.name)
	}
	if v >= 0x0b {
		b.u8(s.rate, s.pitch, s.amp)
	}
	if v >= 0x16 {
		b.u8(s.depth)
	}
	if v >= 0x1b {
		b.i32(s.cutStart, s.cutEnd)
	}
	b.raw(s.payload)
}

type cell struct {
	note, octave, volume, ins int16
	fx                        []int16 // command/value pairs
}

type moduleSpec struct {
	version     uint8
	system      song.Chip
	name        string
	timeBase    uint8
	customTempo bool
	customHz    string
	patLen      int32
	orders      int
	orderIndex  func(ch, o int) uint8
	effectCols  int
	instruments []writer
	waves       [][]int32
	cell        func(ch, row int) *cell
	samples     []writer
	noSamples   bool
}

func newModuleSpec(version uint8, sys song.Chip) moduleSpec {
	if version < 0x09 {
		sys = song.ChipYMU759
	}
	return moduleSpec{
		version:  version,
		system:   sys,
		name:     "Test",
		customHz: "060",
		patLen:   2,
		orders:   1,
	}
}

// historic maps a field to the 8-bit row format.
func historic(v int16) uint8 {
	if v < 0 {
		return 0x80
	}
	return uint8(v)
}

func (m moduleSpec) build() *bytesBuilder {
	v := m.version
	channels := m.system.Channels()
	b := &bytesBuilder{}
	b.raw([]byte(Magic)).u8(v)
	if v >= 0x09 {
		b.u8(m.system.FileID())
	}

	if m.system == song.ChipYMU759 && v < 0x10 {
		for _, field := range []string{"vendor", "carrier", "category", m.name, "Tester"} {
			b.pstr(field)
		}
		for i := 0; i < 8; i++ {
			b.pstr("")
		}
	} else {
		b.pstr(m.name).pstr("Tester")
	}

	if v >= 0x0d {
		b.u8(8, 32)
	}
	b.u8(m.timeBase, 6)
	if v >= 0x08 {
		custom := uint8(0)
		if m.customTempo {
			custom = 1
		}
		b.u8(3, 1, custom)
	}
	if v >= 0x0b {
		b.raw([]byte(m.customHz))
	}
	if v >= 0x18 {
		b.i32(m.patLen)
	} else {
		b.u8(uint8(m.patLen))
	}
	b.u8(uint8(m.orders))
	if v >= 0x04 && v < 0x14 {
		b.u8(3)
	}

	b.mark("orders")
	for ch := 0; ch < channels; ch++ {
		for o := 0; o < m.orders; o++ {
			idx := uint8(0)
			if m.orderIndex != nil {
				idx = m.orderIndex(ch, o)
			}
			b.u8(idx)
			if v >= 0x19 {
				b.pstr("")
			}
		}
	}
	if v >= 0x04 && v < 0x06 {
		for ch := 0; ch < channels && ch < 16; ch++ {
			b.u8(1)
		}
	}

	if v >= 0x06 {
		b.u8(uint8(len(m.instruments)))
		for _, ins := range m.instruments {
			ins.write(b, v)
		}
	}

	if v >= 0x0c {
		b.u8(uint8(len(m.waves)))
		for _, w := range m.waves {
			b.i32(int32(len(w)))
			for _, x := range w {
				if v < 0x0e {
					b.u8(uint8(x))
				} else {
					b.i32(x)
				}
			}
		}
	}

	cols := max(m.effectCols, 1)
	b.mark("patterns")
	for ch := 0; ch < channels; ch++ {
		if v >= 0x0a {
			b.u8(uint8(cols))
		}
		for o := 0; o < m.orders; o++ {
			for row := 0; row < int(m.patLen); row++ {
				c := &cell{volume: -1, ins: -1}
				if m.cell != nil {
					if got := m.cell(ch, row); got != nil {
						c = got
					}
				}
				fx := make([]int16, 2*cols)
				for k := range fx {
					fx[k] = -1
					if k < len(c.fx) {
						fx[k] = c.fx[k]
					}
				}
				if v >= 0x09 {
					b.i16(c.note, c.octave, c.volume)
					b.i16(fx...)
					b.i16(c.ins)
				} else {
					b.u8(uint8(c.note), uint8(c.octave), historic(c.volume))
					for _, x := range fx {
						b.u8(historic(x))
					}
					if v >= 0x06 {
						b.u8(historic(c.ins))
					}
				}
			}
		}
	}

	b.mark("samples")
	if !m.noSamples {
		b.u8(uint8(len(m.samples)))
		if v < 0x0b && len(m.samples) > 0 {
			b.u8(0)
		}
		for _, s := range m.samples {
			s.write(b, v)
		}
	}
	return b
}

func quietConfig() Config {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return Config{Logger: l}
}

func mustDecode(t *testing.T, data []byte) *Result {
	t.Helper()
	res, err := Decode(data, quietConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}
