package dmf

import (
	"errors"
	"slices"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

func decodeSamples(t *testing.T, version uint8, smps ...writer) *Result {
	t.Helper()
	m := newModuleSpec(version, song.ChipGenesis)
	m.samples = smps
	return mustDecode(t, m.build().buf)
}

func TestSampleADPCM(t *testing.T) {
	packed := []byte{0x00, 0x88, 0x77}
	res := decodeSamples(t, 0x05, sampleSpec{length: 3, payload: packed})
	smp := res.Song.Samples[0]
	if smp.Depth != song.DepthYMZ {
		t.Errorf("expected YMZ depth, got %s", smp.Depth)
	}
	wantRaw := song.ExpandNibbles(packed)
	if !slices.Equal(smp.DataADPCM, wantRaw) {
		t.Errorf("expected ADPCM %x, got %x", wantRaw, smp.DataADPCM)
	}
	if want := song.DecodeYMZ(wantRaw); !slices.Equal(smp.Data16, want) || smp.Samples != 6 {
		t.Errorf("expected %d decoded samples %v, got %v", 6, want, smp.Data16)
	}
}

func TestSampleByteLengthPayload(t *testing.T) {
	// Eight bytes of data fill four of the eight words.
	var b bytesBuilder
	b.i16(10, -10, 20, -20)
	res := decodeSamples(t, 0x08, sampleSpec{length: 8, payload: b.buf})
	smp := res.Song.Samples[0]
	want := []int16{10, -10, 20, -20, 0, 0, 0, 0}
	if !slices.Equal(smp.Data16, want) {
		t.Errorf("expected %v, got %v", want, smp.Data16)
	}
	if smp.Rate != song.LegacyRate(0) || smp.Pitch != song.DefaultPitch || smp.Volume != song.DefaultVolume {
		t.Errorf("expected default rate, pitch and volume, got %s", spew.Sdump(smp))
	}
}

func TestSamplePitchAndVolume(t *testing.T) {
	tests := []struct {
		name  string
		pitch uint8
		amp   uint8
		want  []int16
	}{
		{"unchanged", 5, 50, []int16{100, 200, 300, 400}},
		{"double speed", 6, 50, []int16{100, 300}},
		{"half speed", 4, 50, []int16{100, 100, 200, 200, 300, 300, 400, 400}},
		{"double volume", 5, 100, []int16{200, 400, 600, 800}},
		{"silent", 5, 0, []int16{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := pcmSample("s", 100, 200, 300, 400)
			s.pitch, s.amp = tt.pitch, tt.amp
			res := decodeSamples(t, 0x16, s)
			smp := res.Song.Samples[0]
			if !slices.Equal(smp.Data16, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, smp.Data16)
			}
			if smp.Samples != len(tt.want) {
				t.Errorf("expected %d samples, got %d", len(tt.want), smp.Samples)
			}
		})
	}
}

func TestSamplePitchOutOfRange(t *testing.T) {
	s := pcmSample("s", 1, 2)
	s.pitch = song.MaxPitch + 1
	m := newModuleSpec(NewestVersion, song.ChipGenesis)
	m.samples = []writer{s}
	if _, err := Decode(m.build().buf, quietConfig()); !errors.Is(err, bin.ErrInvariant) {
		t.Errorf("expected invariant error, got %v", err)
	}
}

func TestSampleDepth(t *testing.T) {
	s := pcmSample("eight", 0x90, 0x70, 0x80)
	s.depth = 8
	res := decodeSamples(t, NewestVersion, s)
	smp := res.Song.Samples[0]
	if smp.Depth != song.Depth8 || smp.Data16 != nil {
		t.Fatalf("expected 8-bit data, got %s", spew.Sdump(smp))
	}
	if want := []int8{16, -16, 0}; !slices.Equal(smp.Data8, want) {
		t.Errorf("expected %v, got %v", want, smp.Data8)
	}

	s.depth = 12
	res = decodeSamples(t, NewestVersion, s)
	if !res.Warnings.Has(bin.WarnLossy) || res.Song.Samples[0].Depth != song.Depth16 {
		t.Errorf("expected a lossy 16-bit fallback, got %v", res.Warnings.Strings())
	}
}

func TestSampleName(t *testing.T) {
	res := decodeSamples(t, 0x17, pcmSample("hat", 1))
	if got := res.Song.Samples[0].Name; got != "hat" {
		t.Errorf("expected name %q, got %q", "hat", got)
	}
	res = decodeSamples(t, 0x16, pcmSample("hat", 1))
	if got := res.Song.Samples[0].Name; got != "" {
		t.Errorf("expected no name before it was stored, got %q", got)
	}
}

func TestSampleTrim(t *testing.T) {
	tests := []struct {
		name       string
		pitch      uint8
		start, end int32
		want       []int16
		ok         bool
	}{
		{"whole", 5, 0, 4, []int16{1, 2, 3, 4}, true},
		{"middle", 5, 1, 3, []int16{2, 3}, true},
		{"empty", 5, 2, 2, []int16{}, true},
		{"reversed", 5, 3, 1, nil, false},
		{"past the end", 5, 0, 5, nil, false},
		{"negative", 5, -1, 2, nil, false},
		{"past the resampled end", 10, 0, 2, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := pcmSample("cut", 1, 2, 3, 4)
			s.pitch, s.cutStart, s.cutEnd = tt.pitch, tt.start, tt.end
			m := newModuleSpec(NewestVersion, song.ChipGenesis)
			m.samples = []writer{s}
			res, err := Decode(m.build().buf, quietConfig())
			if !tt.ok {
				if !errors.Is(err, bin.ErrInvariant) {
					t.Errorf("expected invariant error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			smp := res.Song.Samples[0]
			if !slices.Equal(smp.Data16, tt.want) || smp.Samples != len(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, smp.Data16)
			}
		})
	}
}

func TestSampleNegativeLength(t *testing.T) {
	m := newModuleSpec(NewestVersion, song.ChipGenesis)
	m.samples = []writer{pcmSample("s", 1, 2)}
	b := m.build()
	off := b.marks["sample length"]
	b.buf[off+3] = 0x80
	if _, err := Decode(b.buf, quietConfig()); !errors.Is(err, bin.ErrInvariant) {
		t.Errorf("expected invariant error, got %v", err)
	}
}

func TestSampleOldUnknownByte(t *testing.T) {
	res := decodeSamples(t, 0x0a, sampleSpec{length: 2, payload: []byte{7, 0}}, sampleSpec{length: 2, payload: []byte{9, 0}})
	if len(res.Song.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(res.Song.Samples))
	}
	if got := res.Song.Samples[1].Data16; !slices.Equal(got, []int16{9, 0}) {
		t.Errorf("expected [9 0], got %v", got)
	}
}
