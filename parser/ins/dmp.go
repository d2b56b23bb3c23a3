package ins

import (
	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/parser/dmf"
	"github.com/QEStudios/TrackerImporter/song"
)

// Newest DefleMask preset revision.
const dmpNewestVersion = 11

// dmpTarget describes what a preset's system byte does to the fields that
// follow. Presets without a system byte use the zero system.
type dmpTarget struct {
	fmType  song.InsType
	stdType song.InsType
	opll    bool // Operator bytes carry OPLL fields.
	hasAMS  bool
	noVol   bool // GB presets store a hardware envelope instead of a volume macro.
	gb      bool
	c64     bool
}

func newDMPTarget(sys song.Chip) dmpTarget {
	t := dmpTarget{fmType: song.InsFM, stdType: song.InsStd, hasAMS: true}
	switch {
	case sys.IsOPLL():
		t.fmType = song.InsOPLL
		t.opll = true
		t.hasAMS = false
	case sys == song.ChipArcade:
		t.fmType = song.InsOPM
	case sys == song.ChipYMU759:
		t.hasAMS = false
	}
	switch {
	case sys == song.ChipGB:
		t.stdType = song.InsGB
		t.noVol = true
		t.gb = true
	case sys.IsC64():
		t.stdType = song.InsC64
		t.c64 = true
	case sys == song.ChipPCE:
		t.stdType = song.InsPCE
	case sys == song.ChipNES, sys == song.ChipNESVRC7, sys == song.ChipNESFDS:
		t.stdType = song.InsNES
	case sys.IsNeoGeo(), sys == song.ChipMSX2:
		t.stdType = song.InsAY
	}
	return t
}

func decodeDMP(d *decoder) error {
	r := d.r
	r.StartStage("preset")
	version := r.ReadU8("version")
	if err := r.Err(); err != nil {
		return err
	}
	if version > dmpNewestVersion {
		return r.Invariantf("preset version %d is newer than %d", version, dmpNewestVersion)
	}

	target := newDMPTarget(song.ChipNone)
	if version >= 11 {
		id := r.ReadU8("system")
		sys, ok := song.ChipFromFileID(id)
		if r.Err() == nil && !ok {
			return r.Invariantf("unknown system %#02x", id)
		}
		target = newDMPTarget(sys)
	}
	d.log.WithField("version", version).Debug("preset header decoded")

	var ins *song.Instrument
	if r.ReadU8("mode") == 1 {
		var err error
		if ins, err = readDMPFM(r, version, target); err != nil {
			return err
		}
	} else {
		ins = readDMPStd(r, target)
	}
	if err := r.Err(); err != nil {
		return err
	}
	d.add(ins)
	d.checkTrailing()
	return nil
}

func readDMPFM(r *bin.Reader, version uint8, t dmpTarget) (*song.Instrument, error) {
	ops := 4
	if version < 10 {
		ops = 2 + 2*int(r.ReadU8("operator count flag"))
		if ops != 2 && ops != 4 {
			return nil, r.Invariantf("FM preset must have 2 or 4 operators, got %d", ops)
		}
	}
	ins := newFM(t.fmType, ops)
	f := &ins.FM
	f.FMS = r.ReadU8("FMS")
	f.FB = r.ReadU8("feedback")
	f.Alg = r.ReadU8("algorithm")
	if t.hasAMS {
		f.AMS = r.ReadU8("AMS")
	}

	r.StartSubStage("operator")
	for j := 0; j < ops; j++ {
		r.SetSubStageIndex(j)
		op := &f.Op[j]
		op.Mult = r.ReadU8("MULT")
		op.TL = r.ReadU8("TL")
		op.AR = r.ReadU8("AR")
		op.DR = r.ReadU8("DR")
		op.SL = r.ReadU8("SL")
		op.RR = r.ReadU8("RR")
		op.AM = r.ReadU8("AM")
		if t.opll {
			dmf.ReadOperatorTail(r, op, dmf.TailOPLL)
			continue
		}
		dmf.ReadOperatorTail(r, op, dmf.TailOPN)
		// Presets pack DT2 into the high nibble of DT.
		op.DT, op.DT2 = op.DT&15, op.DT>>4
	}
	r.StartSubStage("")
	return ins, nil
}

func readDMPStd(r *bin.Reader, t dmpTarget) *song.Instrument {
	ins := song.NewInstrument(t.stdType)
	std := &ins.Std
	if !t.noVol {
		dmf.ReadMacro(r, std.Macro(song.MacroVol), "volume")
	}
	arp := std.Macro(song.MacroArp)
	dmf.ReadMacro(r, arp, "arpeggio")
	arp.Mode = r.ReadU8("arpeggio mode")
	if arp.Mode != song.ArpFixed {
		arp.Add(-12)
	}
	dmf.ReadMacro(r, std.Macro(song.MacroDuty), "duty")
	dmf.ReadMacro(r, std.Macro(song.MacroWave), "wave")

	switch {
	case t.c64:
		dmf.ReadC64(r, ins, false)
	case t.gb:
		dmf.ReadGBEnvelope(r, &ins.GB)
	}
	return ins
}
