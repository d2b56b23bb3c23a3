package ins

import (
	"bytes"

	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

// libADLMIDI and libOPNMIDI instrument files and banks. Counts and note
// offsets are big-endian, versions little-endian.
const (
	magicOPLI      = "WOPL3-INST\x00"
	magicWOPL      = "WOPL3-BANK\x00"
	magicOPNI      = "WOPN2-INST\x00"
	magicOPNI2     = "WOPN2-IN2T\x00"
	magicWOPN      = "WOPN2-BANK\x00"
	magicWOPN2     = "WOPN2-B2NK\x00"
	woplMaxVersion = 3
	wopnMaxVersion = 2

	programsPerBank = 128
	bankMetaSize    = 34
)

// WOPL instrument flags.
const (
	woplFourOp       = 1 << 0
	woplPseudoFourOp = 1 << 1
	woplBlank        = 1 << 2
)

// readMagic consumes one of magics and returns its index, or -1.
func readMagic(d *decoder, magics ...string) int {
	for i, m := range magics {
		if bytes.HasPrefix(d.data, []byte(m)) {
			d.r.Skip(len(m), "signature")
			return i
		}
	}
	return -1
}

// readWOPLInstrument decodes one instrument record. It reports false for
// blank entries.
func (d *decoder) readWOPLInstrument(r *bin.Reader, delays bool) (*song.Instrument, bool) {
	name := r.ReadString(32, "name")
	r.Skip(2+2+1+1+1, "note offsets, velocity offset, detune and percussion key")
	flags := r.ReadU8("flags")
	fbCon1 := r.ReadU8("feedback/connection 1")
	fbCon2 := r.ReadU8("feedback/connection 2")
	// Stored as carrier 1, modulator 1, carrier 2, modulator 2.
	var regs [4]oplRegs
	for k := range regs {
		regs[k] = oplRegs{
			char:  r.ReadU8("AM/VIB/EG/KSR/MULT"),
			scale: r.ReadU8("KSL/TL"),
			ad:    r.ReadU8("AR/DR"),
			sr:    r.ReadU8("SL/RR"),
			wave:  r.ReadU8("waveform"),
		}
	}
	if delays {
		r.Skip(4, "sounding delays")
	}
	if r.Err() != nil || flags&woplBlank != 0 {
		return nil, false
	}

	ops := 2
	if flags&woplFourOp != 0 && flags&woplPseudoFourOp == 0 {
		ops = 4
	}
	ins := newFM(song.InsOPL, ops)
	ins.Name = name
	f := &ins.FM
	regs[1].apply(&f.Op[0])
	regs[0].apply(&f.Op[1])
	setFBCon(f, fbCon1)
	if ops == 4 {
		regs[3].apply(&f.Op[2])
		regs[2].apply(&f.Op[3])
		f.Alg = fbCon1&1 | (fbCon2&1)<<1
	}
	if flags&woplPseudoFourOp != 0 {
		d.warnf(bin.WarnLossy, "instrument %q: only the first voice of a double-voice patch is kept", name)
	}
	return ins, true
}

// readWOPNInstrument decodes one instrument record. It reports false for
// entries with no patch data.
func (d *decoder) readWOPNInstrument(r *bin.Reader, delays bool) (*song.Instrument, bool) {
	name := r.ReadString(32, "name")
	r.Skip(2+1, "note offset and percussion key")
	fbAlg := r.ReadU8("FB/ALG")
	lfo := r.ReadU8("LFO sensitivity")
	patch := r.ReadBytes(4*7, "operators")
	if delays {
		r.Skip(4, "sounding delays")
	}
	if r.Err() != nil || (fbAlg == 0 && lfo == 0 && isZero(patch)) {
		return nil, false
	}

	ins := newFM(song.InsFM, 4)
	ins.Name = name
	f := &ins.FM
	setFBAlg(f, fbAlg)
	f.FMS = lfo & 7
	f.AMS = (lfo >> 4) & 3
	ops := bin.NewReader(patch)
	for _, j := range slotOrder {
		readOPNRegs(ops).apply(&f.Op[j])
	}
	return ins, true
}

func decodeOPLI(d *decoder) error {
	r := d.r
	r.StartStage("header")
	if readMagic(d, magicOPLI) < 0 {
		return r.Invariantf("missing %q signature", magicOPLI)
	}
	version := r.ReadU16("version")
	r.Skip(1, "percussion flag")
	if err := r.Err(); err != nil {
		return err
	}
	if version > woplMaxVersion {
		d.warnf(bin.WarnForwardVersion, "instrument version %d is newer than %d", version, woplMaxVersion)
	}
	r.StartStage("instrument")
	ins, ok := d.readWOPLInstrument(r, version >= 2)
	if err := r.Err(); err != nil {
		return err
	}
	if ok {
		d.add(ins)
	}
	d.checkTrailing()
	return nil
}

func decodeOPNI(d *decoder) error {
	r := d.r
	r.StartStage("header")
	version := uint16(1)
	switch readMagic(d, magicOPNI2, magicOPNI) {
	case 0:
		version = r.ReadU16("version")
	case -1:
		return r.Invariantf("missing %q signature", magicOPNI2)
	}
	r.Skip(1, "percussion flag")
	if err := r.Err(); err != nil {
		return err
	}
	if version > wopnMaxVersion {
		d.warnf(bin.WarnForwardVersion, "instrument version %d is newer than %d", version, wopnMaxVersion)
	}
	r.StartStage("instrument")
	ins, ok := d.readWOPNInstrument(r, version >= 2)
	if err := r.Err(); err != nil {
		return err
	}
	if ok {
		d.add(ins)
	}
	d.checkTrailing()
	return nil
}

// bankHeader is what the two bank formats share after their own fields.
type bankHeader struct {
	melodic, percussion int
	meta                bool // Per-bank names follow the header.
	delays              bool // Instrument records end with sounding delays.
}

func (d *decoder) readBanks(h bankHeader, read func(r *bin.Reader, delays bool) (*song.Instrument, bool)) error {
	r := d.r
	if h.meta {
		r.StartStage("bank names")
		r.Skip((h.melodic+h.percussion)*bankMetaSize, "bank names")
	}
	banks := h.melodic + h.percussion
	for b := 0; b < banks; b++ {
		r.StartStage("bank")
		r.SetStageIndex(b)
		r.StartSubStage("program")
		for p := 0; p < programsPerBank; p++ {
			r.SetSubStageIndex(p)
			ins, ok := read(r, h.delays)
			if err := r.Err(); err != nil {
				return err
			}
			if ok {
				d.addEntry(ins, b*programsPerBank+p)
			}
		}
	}
	d.checkTrailing()
	return nil
}

func decodeWOPL(d *decoder) error {
	r := d.r
	r.StartStage("header")
	if readMagic(d, magicWOPL) < 0 {
		return r.Invariantf("missing %q signature", magicWOPL)
	}
	version := r.ReadU16("version")
	h := bankHeader{
		melodic:    int(r.ReadU16BE("melodic bank count")),
		percussion: int(r.ReadU16BE("percussion bank count")),
	}
	r.Skip(2, "global flags and volume model")
	if err := r.Err(); err != nil {
		return err
	}
	if version > woplMaxVersion {
		d.warnf(bin.WarnForwardVersion, "bank version %d is newer than %d", version, woplMaxVersion)
	}
	h.meta = version >= 2
	h.delays = version >= 3
	d.log.WithField("version", version).WithField("banks", h.melodic+h.percussion).Debug("bank header decoded")
	return d.readBanks(h, d.readWOPLInstrument)
}

func decodeWOPN(d *decoder) error {
	r := d.r
	r.StartStage("header")
	version := uint16(1)
	switch readMagic(d, magicWOPN2, magicWOPN) {
	case 0:
		version = r.ReadU16("version")
	case -1:
		return r.Invariantf("missing %q signature", magicWOPN2)
	}
	h := bankHeader{
		melodic:    int(r.ReadU16BE("melodic bank count")),
		percussion: int(r.ReadU16BE("percussion bank count")),
	}
	r.Skip(1, "LFO frequency")
	if err := r.Err(); err != nil {
		return err
	}
	if version > wopnMaxVersion {
		d.warnf(bin.WarnForwardVersion, "bank version %d is newer than %d", version, wopnMaxVersion)
	}
	h.meta = version >= 2
	h.delays = version >= 2
	d.log.WithField("version", version).WithField("banks", h.melodic+h.percussion).Debug("bank header decoded")
	return d.readBanks(h, d.readWOPNInstrument)
}
