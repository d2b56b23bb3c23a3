package song

import (
	"slices"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestChipFileIDsRoundTrip(t *testing.T) {
	seen := make(map[uint8]Chip)
	for _, c := range FileSystems() {
		id := c.FileID()
		if id == 0 {
			t.Errorf("%s has no file id", c)
			continue
		}
		if prev, ok := seen[id]; ok {
			t.Errorf("file id %#x used by both %s and %s", id, prev, c)
		}
		seen[id] = c
		got, ok := ChipFromFileID(id)
		if !ok || got != c {
			t.Errorf("file id %#x: expected %s, got %s (ok=%v)", id, c, got, ok)
		}
		if c.Channels() <= 0 {
			t.Errorf("%s has no channels", c)
		}
	}
	if _, ok := ChipFromFileID(0x55); ok {
		t.Error("expected unknown file id to be rejected")
	}
}

func TestExpandSystem(t *testing.T) {
	tests := []struct {
		sys     Chip
		ids     []Chip
		volumes []float64
	}{
		{ChipGenesis, []Chip{ChipYM2612, ChipSMS}, []float64{1, 0.5}},
		{ChipGenesisExt, []Chip{ChipYM2612Ext, ChipSMS}, []float64{1, 0.5}},
		{ChipArcade, []Chip{ChipYM2151, ChipSegaPCMCompat}, []float64{1, 1}},
		{ChipSMSOPLL, []Chip{ChipSMS, ChipOPLL}, []float64{1, 1}},
		{ChipNESVRC7, []Chip{ChipNES, ChipVRC7}, []float64{1, 1}},
		{ChipNESFDS, []Chip{ChipNES, ChipFDS}, []float64{1, 1}},
		{ChipMSX2, []Chip{ChipAY8910, ChipSCC}, []float64{1, 1}},
		{ChipNES, []Chip{ChipNES}, []float64{1}},
		{ChipYM2610Ext, []Chip{ChipYM2610Ext}, []float64{1}},
	}
	for _, tt := range tests {
		got := ExpandSystem(tt.sys)
		if len(got) != len(tt.ids) {
			t.Errorf("%s: expected %d chips, got %s", tt.sys, len(tt.ids), spew.Sdump(got))
			continue
		}
		for i := range got {
			if got[i].ID != tt.ids[i] || got[i].Volume != tt.volumes[i] {
				t.Errorf("%s chip %d: expected %s at %.1f, got %s at %.1f",
					tt.sys, i, tt.ids[i], tt.volumes[i], got[i].ID, got[i].Volume)
			}
			if got[i].Flags == nil {
				t.Errorf("%s chip %d: nil flags", tt.sys, i)
			}
		}
	}

	gb := ExpandSystem(ChipGB)
	if len(gb) != 1 || gb[0].Flags["enoughAlready"] != "true" {
		t.Errorf("expected Game Boy to carry enoughAlready=true, got %s", spew.Sdump(gb))
	}
}

func TestNewWavetableMasksToChip(t *testing.T) {
	w := NewWavetable([]int32{16, 15, 31, -1, 3}, ChipGB)
	if w.Max != 15 {
		t.Errorf("expected max 15, got %d", w.Max)
	}
	if !slices.Equal(w.Data, []int32{0, 15, 15, 15, 3}) {
		t.Errorf("unexpected data %v", w.Data)
	}

	fds := NewWavetable([]int32{64, 63}, ChipNESFDS)
	if !slices.Equal(fds.Data, []int32{0, 63}) {
		t.Errorf("unexpected FDS data %v", fds.Data)
	}
}

func TestDropEmptyWaveQuirk(t *testing.T) {
	empty := &Wavetable{}
	full := &Wavetable{Data: []int32{1}}

	if got := DropEmptyWaveQuirk([]*Wavetable{empty}); len(got) != 0 {
		t.Errorf("expected the single empty wavetable to be dropped, got %d", len(got))
	}
	if got := DropEmptyWaveQuirk([]*Wavetable{full}); len(got) != 1 {
		t.Errorf("expected 1 wavetable, got %d", len(got))
	}
	if got := DropEmptyWaveQuirk([]*Wavetable{empty, full}); len(got) != 2 {
		t.Errorf("expected 2 wavetables, got %d", len(got))
	}
}

func TestNewInstrumentIsIndependent(t *testing.T) {
	a := NewInstrument(InsStd)
	a.FM.Op[0].TL = 1
	a.Std.Macro(MacroVol).Set([]int32{1, 2, 3}, 1)

	b := NewInstrument(InsFM)
	if b.FM.Op[0].TL != 42 {
		t.Errorf("template was modified: TL=%d", b.FM.Op[0].TL)
	}
	if b.Std.Macro(MacroVol).Len() != 0 {
		t.Errorf("template macro was modified: %v", b.Std.Macro(MacroVol).Values)
	}
	if b.Type != InsFM || a.Type != InsStd {
		t.Errorf("unexpected types %s and %s", a.Type, b.Type)
	}

	c := a.Clone()
	c.Std.Macro(MacroVol).Values[0] = 9
	if a.Std.Macro(MacroVol).Values[0] != 1 {
		t.Error("clone shares macro storage with the original")
	}
}

func TestMacroSet(t *testing.T) {
	var m Macro
	m.Set([]int32{1, 2}, 5)
	if m.Loop != -1 {
		t.Errorf("expected out-of-range loop to be dropped, got %d", m.Loop)
	}
	if !m.Open {
		t.Error("expected macro to be open")
	}
	m.Add(-1)
	if !slices.Equal(m.Values, []int32{0, 1}) {
		t.Errorf("unexpected values %v", m.Values)
	}
	m.Clear()
	if m.Len() != 0 || m.Open {
		t.Error("expected cleared macro")
	}
}

func TestPercentToRange(t *testing.T) {
	if got := PercentToRange(50, 4095); got != 2047 {
		t.Errorf("expected 2047, got %d", got)
	}
	if got := PercentToRange(100, 2047); got != 2047 {
		t.Errorf("expected 2047, got %d", got)
	}
}

func TestCompatFlagsString(t *testing.T) {
	f := CompatFlags{"linearPitch": 1, "limitSlides": 1, "arp0Reset": 0}
	want := "arp0Reset=false\nlimitSlides=true\nlinearPitch=1\n"
	if got := f.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDefaultCompatFlagsAreCopies(t *testing.T) {
	a := DefaultCompatFlags()
	a.SetBool("limitSlides", true)
	if DefaultCompatFlags().Bool("limitSlides") {
		t.Error("defaults were modified through a copy")
	}
	if len(CompatFlagNames()) != len(a) {
		t.Errorf("expected %d names, got %d", len(a), len(CompatFlagNames()))
	}
}

func TestRowString(t *testing.T) {
	tests := []struct {
		row  Row
		want string
	}{
		{EmptyRow(), "... .. .."},
		{Row{Note: 1, Octave: 4, Instrument: 0, Volume: 15, Effects: []Effect{{0x0a, 0x01}, {-1, -1}}}, "C#4 00 0F 0A01 ...."},
		{Row{Note: 12, Octave: 3, Instrument: Empty, Volume: Empty}, "C-4 .. .."},
		{Row{Note: NoteOff, Instrument: Empty, Volume: Empty}, "OFF .. .."},
	}
	for _, tt := range tests {
		if got := tt.row.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestOrderTable(t *testing.T) {
	s := &Song{
		PatternLength: 2,
		Orders:        [][]uint8{{0}, {1}},
		Channels:      make([]Channel, 2),
	}
	p := s.Channels[0].Pattern(0, 2)
	p.Rows[0] = Row{Note: 9, Octave: 2, Instrument: 1, Volume: Empty}
	s.Channels[1].Pattern(1, 2)

	table, err := s.OrderTable(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Channel 0 (00)", "Channel 1 (01)", "A-2 01 .."} {
		if !strings.Contains(table, want) {
			t.Errorf("expected table to contain %q:\n%s", want, table)
		}
	}
	if _, err := s.OrderTable(1); err == nil {
		t.Error("expected out-of-range order to fail")
	}
}
