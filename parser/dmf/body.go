package dmf

import (
	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

// The readers below decode instrument blocks that modules and standalone
// DefleMask presets store identically.

// OperatorTail selects the meaning of the four bytes that end every FM
// operator.
type OperatorTail int

const (
	// TailOPN reads RS, DT, D2R and SSG-EG.
	TailOPN OperatorTail = iota
	// TailOPLL reads KSR, VIB and KSL, then EGT from bit 3 of the last byte.
	TailOPLL
)

// ReadOperatorTail reads the last four bytes of an operator. Fields the tail
// doesn't carry are left alone.
func ReadOperatorTail(r *bin.Reader, op *song.Operator, tail OperatorTail) {
	switch tail {
	case TailOPLL:
		op.KSR = r.ReadU8("KSR")
		op.Vib = r.ReadU8("VIB")
		op.KSL = r.ReadU8("KSL")
		op.EGT = (r.ReadU8("EGT") >> 3) & 1
	default:
		op.RS = r.ReadU8("RS")
		op.DT = r.ReadU8("DT")
		op.D2R = r.ReadU8("D2R")
		op.SSGEnv = r.ReadU8("SSG-EG")
	}
}

// ReadMacro reads a length byte, that many 32-bit values and, if there were
// any, a loop byte. m is untouched if the read fails.
func ReadMacro(r *bin.Reader, m *song.Macro, what string) {
	n := int(r.ReadU8(what + " macro length"))
	values := make([]int32, 0, n)
	for k := 0; k < n; k++ {
		values = append(values, r.ReadI32(what+" macro value"))
	}
	loop := -1
	if n > 0 {
		loop = int(r.ReadI8(what + " macro loop"))
	}
	if r.Err() != nil {
		return
	}
	m.Set(values, loop)
}

// ReadC64 reads the SID block. Duty and cutoff are stored as percentages.
// wideCutoffFlag is set for modules older than 0x11, which store the
// volume-is-cutoff flag in 32 bits.
func ReadC64(r *bin.Reader, ins *song.Instrument, wideCutoffFlag bool) {
	c := &ins.C64
	c.Tri = r.ReadBool("triangle")
	c.Saw = r.ReadBool("saw")
	c.Pulse = r.ReadBool("pulse")
	c.Noise = r.ReadBool("noise")
	c.A = r.ReadU8("attack")
	c.D = r.ReadU8("decay")
	c.S = r.ReadU8("sustain")
	c.R = r.ReadU8("release")
	c.Duty = uint16(song.PercentToRange(int(r.ReadU8("duty")), 4095))
	c.RingMod = r.ReadBool("ring modulation")
	c.OscSync = r.ReadBool("oscillator sync")
	c.ToFilter = r.ReadBool("to filter")
	if wideCutoffFlag {
		c.VolIsCutoff = r.ReadI32("volume is cutoff") != 0
	} else {
		c.VolIsCutoff = r.ReadBool("volume is cutoff")
	}
	c.InitFilter = r.ReadBool("init filter")
	c.Res = r.ReadU8("resonance")
	c.Cut = uint16(song.PercentToRange(int(r.ReadU8("cutoff")), 2047))
	c.HP = r.ReadBool("high pass")
	c.BP = r.ReadBool("band pass")
	c.LP = r.ReadBool("low pass")
	c.Ch3Off = r.ReadBool("channel 3 off")

	if c.VolIsCutoff {
		ins.Std.Macro(song.MacroVol).Add(-18)
	}
}

// ReadGBEnvelope reads the Game Boy hardware envelope.
func ReadGBEnvelope(r *bin.Reader, g *song.GB) {
	g.EnvVol = r.ReadU8("envelope volume")
	g.EnvDir = r.ReadU8("envelope direction")
	g.EnvLen = r.ReadU8("envelope length")
	g.SoundLen = r.ReadU8("sound length")
}
