package dmf

import (
	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

const modeFM = 1

func (d *decoder) readInstruments() error {
	if d.version < 0x06 {
		return nil
	}
	r := d.r
	count := int(r.ReadU8("instrument count"))
	d.song.Instruments = make([]*song.Instrument, 0, count)
	for i := 0; i < count; i++ {
		r.SetStageIndex(i)
		ins, err := d.readInstrument()
		if err != nil {
			return err
		}
		if err := r.Err(); err != nil {
			return err
		}
		d.song.Instruments = append(d.song.Instruments, ins)
	}
	d.log.WithField("count", count).Debug("instruments decoded")
	return nil
}

func (d *decoder) readInstrument() (*song.Instrument, error) {
	r := d.r
	name := r.ReadPString("name")

	fm := d.prof.implicitFM
	if d.version >= 0x0b {
		fm = r.ReadU8("mode") == modeFM
	}

	ins := song.NewInstrument(d.prof.insType(fm))
	ins.Name = name
	if fm {
		return ins, d.readFM(ins)
	}
	return ins, d.readStd(ins)
}

func (d *decoder) readFM(ins *song.Instrument) error {
	r := d.r
	f := &ins.FM

	var ops int
	if d.version < 0x13 {
		f.Alg = r.ReadU8("algorithm")
		r.Skip(1, "padding")
		f.FB = r.ReadU8("feedback")
		r.Skip(1, "padding")
		f.FMS = r.ReadU8("FMS")
		r.Skip(1, "padding")
		ops = 2 + 2*int(r.ReadU8("operator count flag"))
		if d.prof.sys != song.ChipYMU759 {
			ops = 4
		}
		f.AMS = r.ReadU8("AMS")
	} else {
		f.Alg = r.ReadU8("algorithm")
		f.FB = r.ReadU8("feedback")
		f.FMS = r.ReadU8("FMS")
		f.AMS = r.ReadU8("AMS")
		ops = 4
	}
	if ops != 2 && ops != 4 {
		return r.Invariantf("FM instrument must have 2 or 4 operators, got %d", ops)
	}
	f.Ops = uint8(ops)

	r.StartSubStage("operator")
	for j := 0; j < ops; j++ {
		r.SetSubStageIndex(j)
		d.readOperator(f, j)
	}
	r.StartSubStage("")

	switch d.prof.fixup {
	case fixupYMU759:
		if ops == 4 {
			f.Op[1], f.Op[2] = f.Op[2], f.Op[1]
			switch f.Alg {
			case 2:
				f.Alg = 3
			case 3:
				f.Alg = 2
			}
		}
	}
	return nil
}

func (d *decoder) readOperator(f *song.FM, j int) {
	r := d.r
	op := &f.Op[j]
	op.Enable = true

	switch d.rules.op {
	case opLegacyPacked, opLegacySplit:
		op.AM = r.ReadU8("AM")
		op.AR = r.ReadU8("AR")
		op.DAM = r.ReadU8("DAM")
		op.DR = r.ReadU8("DR")
		op.DVB = r.ReadU8("DVB")
		if d.rules.op == opLegacyPacked {
			egtKSR := r.ReadU8("EGT/KSR")
			op.EGT = egtKSR & 1
			op.KSR = (egtKSR >> 1) & 1
			op.KSL = r.ReadU8("KSL")
		} else {
			op.EGT = r.ReadU8("EGT")
			op.KSL = r.ReadU8("KSL")
			op.KSR = r.ReadU8("KSR")
		}
		op.Mult = r.ReadU8("MULT")
		op.RR = r.ReadU8("RR")
		op.SL = r.ReadU8("SL")
		op.Sus = r.ReadU8("SUS")
		op.TL = r.ReadU8("TL")
		op.Vib = r.ReadU8("VIB")
		op.WS = r.ReadU8("WS")
	case opModern, opModernPreset:
		op.AM = r.ReadU8("AM")
		op.AR = r.ReadU8("AR")
		op.DR = r.ReadU8("DR")
		op.Mult = r.ReadU8("MULT")
		op.RR = r.ReadU8("RR")
		op.SL = r.ReadU8("SL")
		op.TL = r.ReadU8("TL")
		dt2 := r.ReadU8("DT2")
		if d.rules.op == opModernPreset && j == 0 {
			f.OPLLPreset = dt2
		} else {
			op.DT2 = dt2
		}
	}
	ReadOperatorTail(r, op, d.prof.tail)
}

func (d *decoder) readStd(ins *song.Instrument) error {
	r := d.r
	std := &ins.Std

	if d.prof.hasVolMacro {
		ReadMacro(r, std.Macro(song.MacroVol), "volume")
	}

	arp := std.Macro(song.MacroArp)
	ReadMacro(r, arp, "arpeggio")
	if d.version >= 0x10 {
		arp.Mode = r.ReadU8("arpeggio mode")
	}
	if arp.Mode != song.ArpFixed {
		arp.Add(-12)
	}

	ReadMacro(r, std.Macro(song.MacroDuty), "duty")
	ReadMacro(r, std.Macro(song.MacroWave), "wave")

	switch {
	case d.prof.c64Block:
		ReadC64(r, ins, d.version < 0x11)
	case d.prof.gbEnvelope:
		ReadGBEnvelope(r, &ins.GB)
		std.Macro(song.MacroVol).Clear()
	case d.prof.gbFromMacro:
		d.volumeMacroToEnvelope(ins)
	}
	return nil
}

// volumeMacroToEnvelope approximates a GB volume macro with the hardware
// envelope, as old modules had no envelope fields.
func (d *decoder) volumeMacroToEnvelope(ins *song.Instrument) {
	vol := ins.Std.Macro(song.MacroVol)
	if vol.Len() == 0 {
		return
	}
	first := vol.Values[0]
	last := vol.Values[vol.Len()-1]
	g := &ins.GB
	g.EnvVol = uint8(min(max(first, 0), 15))
	g.EnvDir = 0
	if last > first {
		g.EnvDir = 1
	}
	g.EnvLen = 0
	if last != first {
		g.EnvLen = uint8(min(vol.Len()-1, 7))
	}
	g.SoundLen = 64
	vol.Clear()
	d.warnf(bin.WarnLossy, "instrument %q: volume macro converted to a hardware envelope", ins.Name)
}
