package song

import (
	"fmt"

	clone "github.com/huandu/go-clone/generic"
)

// InsType says which chip family an instrument is written for.
type InsType int

const (
	InsFM InsType = iota // Yamaha OPN (YM2612, YM2610 FM channels).
	InsStd
	InsGB
	InsC64
	InsAmiga
	InsPCE
	InsAY
	InsOPLL
	InsOPL
	InsOPM
	InsNES
	InsFDS
	InsVRC6
	InsN163
	InsAY8930
	InsSCC
)

var insTypeNames = [...]string{
	InsFM:     "FM (OPN)",
	InsStd:    "Standard",
	InsGB:     "Game Boy",
	InsC64:    "C64",
	InsAmiga:  "Sample",
	InsPCE:    "PC Engine",
	InsAY:     "AY-3-8910",
	InsOPLL:   "FM (OPLL)",
	InsOPL:    "FM (OPL)",
	InsOPM:    "FM (OPM)",
	InsNES:    "NES",
	InsFDS:    "FDS",
	InsVRC6:   "VRC6",
	InsN163:   "Namco 163",
	InsAY8930: "AY8930",
	InsSCC:    "SCC",
}

func (t InsType) String() string {
	if t >= 0 && int(t) < len(insTypeNames) {
		return insTypeNames[t]
	}
	return fmt.Sprintf("InsType(%d)", int(t))
}

// IsFM reports whether t carries an FM patch.
func (t InsType) IsFM() bool {
	switch t {
	case InsFM, InsOPLL, InsOPL, InsOPM:
		return true
	default:
		return false
	}
}

// One FM operator. Fields are raw register values.
type Operator struct {
	Enable bool

	AM, AR, DR, Mult, RR, SL, TL, DT2 uint8
	RS, DT, D2R, SSGEnv               uint8

	// OPL/OPLL only.
	DAM, DVB, EGT, KSL, Sus, Vib, WS, KSR uint8

	// OPZ key velocity sensitivity.
	KVS uint8
}

// An FM patch with up to four operators.
type FM struct {
	Alg, FB    uint8
	FMS, AMS   uint8
	FMS2, AMS2 uint8 // OPZ second LFO.
	Ops        uint8 // 2 or 4.

	OPLLPreset uint8 // 0 means user patch.
	FixedDrums bool
	Block      uint8

	Op [4]Operator
}

// MacroCode indexes Std.Macros.
type MacroCode int

const (
	MacroVol MacroCode = iota
	MacroArp
	MacroDuty
	MacroWave
	MacroPitch
	MacroEx1
	MacroEx2
	MacroEx3
	MacroAlg
	MacroFB
	MacroFMS
	MacroAMS
	MacroPanL
	MacroPanR
	MacroPhaseReset
	MacroEx4
	MacroEx5
	MacroEx6
	MacroEx7
	MacroEx8

	MacroCount
)

var macroNames = [MacroCount]string{
	"vol", "arp", "duty", "wave", "pitch", "ex1", "ex2", "ex3",
	"alg", "fb", "fms", "ams", "panL", "panR", "phaseReset",
	"ex4", "ex5", "ex6", "ex7", "ex8",
}

func (c MacroCode) String() string {
	if c >= 0 && c < MacroCount {
		return macroNames[c]
	}
	return fmt.Sprintf("MacroCode(%d)", int(c))
}

// Arpeggio macro modes.
const (
	ArpRelative uint8 = 0
	ArpFixed    uint8 = 1
)

// MaxMacroLen is the largest number of steps a macro can hold.
const MaxMacroLen = 255

// A sequence of per-tick values.
type Macro struct {
	Values  []int32
	Loop    int // -1 if the macro doesn't loop.
	Release int // -1 if the macro has no release point.
	Open    bool
	Mode    uint8
	Delay   uint8
	Speed   uint8
}

// Len returns the number of steps in the macro.
func (m *Macro) Len() int { return len(m.Values) }

// Set replaces the macro's values and opens it if the new value list isn't empty.
func (m *Macro) Set(values []int32, loop int) {
	m.Values = values
	m.Loop = loop
	if loop < 0 || loop >= len(values) {
		m.Loop = -1
	}
	m.Open = len(values) > 0
}

// Clear empties the macro.
func (m *Macro) Clear() {
	m.Values = nil
	m.Loop = -1
	m.Release = -1
	m.Open = false
}

// Add adds d to every value.
func (m *Macro) Add(d int32) {
	for i := range m.Values {
		m.Values[i] += d
	}
}

// Macros shared by every non-FM instrument.
type Std struct {
	Macros [MacroCount]Macro
}

// Macro returns the macro with the given code.
func (s *Std) Macro(c MacroCode) *Macro { return &s.Macros[c] }

// SID instrument parameters.
type C64 struct {
	Tri, Saw, Pulse, Noise bool
	A, D, S, R             uint8
	Duty                   uint16 // 0..4095.
	RingMod, OscSync       bool
	ToFilter, VolIsCutoff  bool
	InitFilter             bool
	Res                    uint8
	Cut                    uint16 // 0..2047.
	HP, BP, LP, Ch3Off     bool
}

// Game Boy hardware envelope.
type GB struct {
	EnvVol     uint8
	EnvDir     uint8 // 1 means the volume goes up.
	EnvLen     uint8
	SoundLen   uint8 // 64 means the note doesn't stop by itself.
	AlwaysInit bool
}

// Famicom Disk System modulation and wave.
type FDS struct {
	ModSpeed                  int32
	ModDepth                  int32
	ModTable                  [32]int8
	InitModTableWithFirstWave bool
}

// Namco 163 wave settings.
type N163 struct {
	Wave, WavePos, WaveLen uint8
	WaveMode               uint8
}

// An instrument of any type. Only the sections relevant to Type carry meaning.
type Instrument struct {
	Name string
	Type InsType

	FM   FM
	Std  Std
	C64  C64
	GB   GB
	FDS  FDS
	N163 N163

	// Furnace-compatible VRC7 built-in patch (0 = custom).
	VRC7Patch uint8

	// Wavetables carried by formats that embed them (FTI FDS/N163).
	Waves []*Wavetable
}

var defaultInstrument = func() Instrument {
	ins := Instrument{
		Name: "Instrument",
		Type: InsFM,
		FM: FM{
			Alg: 0, FB: 4, Ops: 4,
		},
		C64: C64{
			Tri: true, A: 0, D: 8, S: 0, R: 0,
			Duty: 2048, Cut: 2047,
		},
		GB: GB{EnvVol: 15, EnvLen: 2, SoundLen: 64},
	}
	for i := range ins.FM.Op {
		ins.FM.Op[i] = Operator{
			Enable: true,
			AR:     31,
			DR:     8,
			SL:     15,
			RR:     3,
			Mult:   1,
			DT:     3,
		}
	}
	ins.FM.Op[0].TL = 42
	ins.FM.Op[2].TL = 32
	for i := range ins.Std.Macros {
		ins.Std.Macros[i].Loop = -1
		ins.Std.Macros[i].Release = -1
		ins.Std.Macros[i].Speed = 1
	}
	return ins
}()

// NewInstrument returns a fresh copy of the default instrument template.
func NewInstrument(t InsType) *Instrument {
	ins := clone.Clone(defaultInstrument)
	ins.Type = t
	return &ins
}

// Clone returns a deep copy of ins.
func (ins *Instrument) Clone() *Instrument {
	return clone.Clone(ins)
}

// PercentToRange scales a 0..100 percentage onto 0..top.
func PercentToRange(p, top int) int {
	return p * top / 100
}
