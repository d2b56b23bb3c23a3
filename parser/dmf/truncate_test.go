package dmf

import (
	"errors"
	"testing"

	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

// richModule exercises every section of the newest format.
func richModule() *bytesBuilder {
	m := newModuleSpec(NewestVersion, song.ChipGenesis)
	m.instruments = []writer{newFMSpec("fm", 4), stdSpec{name: "psg", vol: []int32{15, 8}, arp: []int32{12}}}
	m.waves = [][]int32{{1, 2, 3, 4}}
	m.orders = 2
	m.orderIndex = func(ch, o int) uint8 { return uint8(o) }
	m.cell = func(ch, row int) *cell {
		return &cell{note: int16(row + 1), octave: 3, volume: 10, ins: int16(ch % 2), fx: []int16{0x01, 0x02}}
	}
	m.samples = []writer{pcmSample("kick", 1, 2, 3), pcmSample("snare", 4, 5)}
	return m.build()
}

func TestTruncationSweep(t *testing.T) {
	b := richModule()
	if _, err := Decode(b.buf, quietConfig()); err != nil {
		t.Fatalf("full module: unexpected error: %v", err)
	}

	for n := 0; n < len(b.buf); n++ {
		res, err := Decode(b.buf[:n], quietConfig())
		switch {
		case n < len(Magic):
			if !errors.Is(err, bin.ErrUnrecognized) {
				t.Errorf("cut at %d: expected unrecognized error, got %v", n, err)
			}
		case n == b.marks["samples"]:
			if err != nil || !res.Warnings.Has(bin.WarnShortRead) {
				t.Errorf("cut at %d: expected success with a short read warning, got %v", n, err)
			}
		default:
			if !errors.Is(err, bin.ErrEndOfData) {
				t.Errorf("cut at %d: expected end-of-data, got %v", n, err)
			}
			if res != nil {
				t.Errorf("cut at %d: expected no result", n)
			}
		}
	}
}

func TestTruncationErrorLocation(t *testing.T) {
	b := richModule()
	_, err := Decode(b.buf[:b.marks["patterns"]+1], quietConfig())
	var e *bin.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *bin.Error, got %T", err)
	}
	if e.Kind != bin.KindEndOfData {
		t.Errorf("expected end-of-data, got %s", e.Kind)
	}
	if e.Offset != b.marks["patterns"]+1 {
		t.Errorf("expected offset %d, got %d", b.marks["patterns"]+1, e.Offset)
	}
}

func TestCorruptedLengths(t *testing.T) {
	tests := []struct {
		mark  string
		patch []byte
	}{
		{"arp macro length", []byte{0xff}},
		{"sample name", []byte{0xff}},
		{"sample length", []byte{0xff, 0xff, 0xff, 0x7f}},
	}
	for _, tt := range tests {
		b := richModule()
		copy(b.buf[b.marks[tt.mark]:], tt.patch)
		_, err := Decode(b.buf, quietConfig())
		if !errors.Is(err, bin.ErrEndOfData) {
			t.Errorf("%s: expected end-of-data, got %v", tt.mark, err)
		}
	}
}

func FuzzDecode(f *testing.F) {
	f.Add(richModule().buf)
	for _, v := range []uint8{0x01, 0x05, 0x08, 0x0b, 0x11, 0x13, 0x18} {
		m := newModuleSpec(v, song.ChipGenesis)
		m.samples = []writer{versionSample(v)}
		f.Add(m.build().buf)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		res, err := Decode(data, quietConfig())
		if err != nil {
			var e *bin.Error
			if !errors.As(err, &e) {
				t.Fatalf("expected *bin.Error, got %T: %v", err, err)
			}
			if res != nil {
				t.Fatal("result returned alongside an error")
			}
			return
		}
		s := res.Song
		if len(s.Channels) != s.System.Channels() || len(s.Orders) != len(s.Channels) {
			t.Fatalf("channel count mismatch: %d channels, %d order lists", len(s.Channels), len(s.Orders))
		}
		for ch, orders := range s.Orders {
			for _, idx := range orders {
				if idx > song.MaxPatternIndex || s.Channels[ch].Patterns[int(idx)] == nil {
					t.Fatalf("channel %d: order references missing pattern %d", ch, idx)
				}
			}
		}
	})
}
