package ins

import (
	"io"

	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

// Furnace instrument type ids.
var furnaceTypes = map[uint16]song.InsType{
	0:  song.InsStd,
	1:  song.InsFM,
	2:  song.InsGB,
	3:  song.InsC64,
	4:  song.InsAmiga,
	5:  song.InsPCE,
	6:  song.InsAY,
	7:  song.InsAY8930,
	12: song.InsVRC6,
	13: song.InsOPLL,
	14: song.InsOPL,
	15: song.InsFDS,
	17: song.InsN163,
	18: song.InsSCC,
	33: song.InsOPM,
	34: song.InsNES,
}

func (d *decoder) furnaceType(id uint16) song.InsType {
	if t, ok := furnaceTypes[id]; ok {
		return t
	}
	d.warnf(bin.WarnLossy, "instrument type %d imported as %s", id, song.InsStd)
	return song.InsStd
}

// Macro value widths in the MA feature.
const (
	wordU8 = iota
	wordI8
	wordI16
	wordI32
)

const macroEnd = 255

func decodeFUI(d *decoder) error {
	r := d.r
	r.StartStage("header")
	r.Skip(len(MagicFUI), "signature")
	version := r.ReadU16("version")
	id := r.ReadU16("type")
	if err := r.Err(); err != nil {
		return err
	}
	ins := song.NewInstrument(d.furnaceType(id))
	ins.Name = ""
	d.log.WithField("version", version).WithField("type", ins.Type.String()).Debug("instrument header decoded")

	r.StartStage("feature")
	for i := 0; r.Remaining() > 0; i++ {
		r.SetStageIndex(i)
		code := r.ReadString(2, "feature code")
		size := int(r.ReadU16("feature length"))
		if err := r.Err(); err != nil {
			return err
		}
		if code == "EN" {
			break
		}
		start := r.Tell()
		if size > r.Remaining() {
			r.Skip(size, "feature "+code)
			return r.Err()
		}
		end := start + size

		switch code {
		case "NA":
			ins.Name = r.ReadCString("name")
		case "FM":
			if err := readFurnaceFM(r, &ins.FM, size); err != nil {
				return err
			}
		case "MA":
			if err := d.readFurnaceMacros(r, &ins.Std, end); err != nil {
				return err
			}
		default:
			d.warnf(bin.WarnLossy, "feature %q is not imported", code)
		}
		if err := r.Err(); err != nil {
			return err
		}
		if r.Tell() > end {
			return r.Invariantf("feature %q overruns its length %d", code, size)
		}
		r.Seek(int64(end), io.SeekStart)
	}
	d.add(ins)
	d.checkTrailing()
	return nil
}

// readFurnaceFM reads the packed FM feature: four header bytes, an
// optional block byte, then eight bytes per operator.
func readFurnaceFM(r *bin.Reader, f *song.FM, size int) error {
	b := r.ReadU8("operator count")
	count := int(b & 15)
	if count > len(f.Op) {
		return r.Invariantf("FM feature has %d operators", count)
	}
	for j := range f.Op {
		f.Op[j].Enable = b&(1<<(4+j)) != 0
	}
	b = r.ReadU8("ALG/FB")
	f.Alg = (b >> 4) & 7
	f.FB = b & 7
	b = r.ReadU8("FMS2/AMS/FMS")
	f.FMS2 = (b >> 5) & 7
	f.AMS = (b >> 3) & 3
	f.FMS = b & 7
	b = r.ReadU8("AMS2/ops/preset")
	f.AMS2 = (b >> 6) & 3
	f.Ops = 2
	if b&32 != 0 {
		f.Ops = 4
	}
	f.OPLLPreset = b & 31
	if size == 5+count*8 {
		f.Block = r.ReadU8("block") & 15
	}

	r.StartSubStage("operator")
	for j := 0; j < count; j++ {
		r.SetSubStageIndex(j)
		op := &f.Op[j]
		b = r.ReadU8("KSR/DT/MULT")
		op.KSR = b >> 7
		op.DT = (b >> 4) & 7
		op.Mult = b & 15
		b = r.ReadU8("SUS/TL")
		op.Sus = b >> 7
		op.TL = b & 127
		b = r.ReadU8("RS/VIB/AR")
		op.RS = (b >> 6) & 3
		op.Vib = (b >> 5) & 1
		op.AR = b & 31
		b = r.ReadU8("AM/KSL/DR")
		op.AM = b >> 7
		op.KSL = (b >> 5) & 3
		op.DR = b & 31
		b = r.ReadU8("EGT/KVS/D2R")
		op.EGT = b >> 7
		op.KVS = (b >> 5) & 3
		op.D2R = b & 31
		b = r.ReadU8("SL/RR")
		op.SL = b >> 4
		op.RR = b & 15
		b = r.ReadU8("DVB/SSG")
		op.DVB = b >> 4
		op.SSGEnv = b & 15
		b = r.ReadU8("DAM/DT2/WS")
		op.DAM = (b >> 5) & 7
		op.DT2 = (b >> 3) & 3
		op.WS = b & 7
	}
	r.StartSubStage("")
	return r.Err()
}

// readFurnaceMacros reads macros until the end marker or the end of the
// feature. Every macro header is headerLen bytes long, of which the fields
// below are the ones this reader knows.
func (d *decoder) readFurnaceMacros(r *bin.Reader, std *song.Std, end int) error {
	headerLen := int(r.ReadU16("macro header length"))
	if err := r.Err(); err != nil {
		return err
	}
	if headerLen < 8 {
		return r.Invariantf("macro header length %d is too short", headerLen)
	}
	r.StartSubStage("macro")
	for k := 0; r.Tell() < end; k++ {
		r.SetSubStageIndex(k)
		start := r.Tell()
		code := r.ReadU8("macro code")
		if r.Err() == nil && code == macroEnd {
			break
		}
		n := int(r.ReadU8("macro length"))
		loop := int(r.ReadU8("macro loop"))
		release := int(r.ReadU8("macro release"))
		mode := r.ReadU8("macro mode")
		flags := r.ReadU8("macro flags")
		delay := r.ReadU8("macro delay")
		speed := r.ReadU8("macro speed")
		if err := r.Err(); err != nil {
			return err
		}
		if !r.Seek(int64(start+headerLen), io.SeekStart) {
			r.Skip(start+headerLen-r.Tell(), "macro header")
			return r.Err()
		}

		values := make([]int32, 0, n)
		for v := 0; v < n; v++ {
			switch (flags >> 6) & 3 {
			case wordU8:
				values = append(values, int32(r.ReadU8("macro value")))
			case wordI8:
				values = append(values, int32(r.ReadI8("macro value")))
			case wordI16:
				values = append(values, int32(r.ReadI16("macro value")))
			case wordI32:
				values = append(values, r.ReadI32("macro value"))
			}
		}
		if err := r.Err(); err != nil {
			return err
		}

		if int(code) >= int(song.MacroCount) {
			d.warnf(bin.WarnLossy, "macro %d is not imported", code)
			continue
		}
		m := std.Macro(song.MacroCode(code))
		m.Set(values, loop)
		m.Release = release
		if release >= n {
			m.Release = -1
		}
		m.Open = flags&1 != 0
		m.Mode = mode
		m.Delay = delay
		m.Speed = speed
		if kind := (flags >> 1) & 3; kind != 0 {
			d.warnf(bin.WarnLossy, "%s macro is an ADSR or LFO generator and is imported as a sequence", song.MacroCode(code))
		}
	}
	r.StartSubStage("")
	return nil
}

// Legacy instrument files point at an INST block holding the name, the
// type and an FM section of four 32-byte operators.
const (
	legacyBlockMagic = "INST"
	legacyOpSize     = 32
)

func decodeFUILegacy(d *decoder) error {
	r := d.r
	r.StartStage("header")
	r.Skip(len(MagicFUILegacy), "signature")
	version := r.ReadU16("version")
	r.Skip(2, "reserved")
	ptr := int64(r.ReadU32("instrument pointer"))
	if err := r.Err(); err != nil {
		return err
	}
	d.log.WithField("version", version).Debug("legacy instrument header decoded")

	r.StartStage("instrument")
	if !r.Seek(ptr, io.SeekStart) {
		return r.Invariantf("instrument pointer %d is outside the file", ptr)
	}
	if magic := r.ReadString(4, "block signature"); r.Err() == nil && magic != legacyBlockMagic {
		return r.Invariantf("missing %q block", legacyBlockMagic)
	}
	r.Skip(4, "block size")
	r.Skip(2, "block version")
	id := r.ReadU8("type")
	r.Skip(1, "reserved")
	name := r.ReadCString("name")
	if err := r.Err(); err != nil {
		return err
	}
	ins := song.NewInstrument(d.furnaceType(uint16(id)))
	ins.Name = name

	r.StartStage("FM")
	f := &ins.FM
	f.Alg = r.ReadU8("algorithm")
	f.FB = r.ReadU8("feedback")
	f.FMS = r.ReadU8("FMS")
	f.AMS = r.ReadU8("AMS")
	f.Ops = r.ReadU8("operator count")
	f.OPLLPreset = r.ReadU8("OPLL preset")
	r.Skip(2, "reserved")
	if err := r.Err(); err != nil {
		return err
	}
	if f.Ops != 2 && f.Ops != 4 {
		return r.Invariantf("FM section must have 2 or 4 operators, got %d", f.Ops)
	}
	r.StartSubStage("operator")
	for j := range f.Op {
		r.SetSubStageIndex(j)
		op := &f.Op[j]
		op.AM = r.ReadU8("AM")
		op.AR = r.ReadU8("AR")
		op.DR = r.ReadU8("DR")
		op.Mult = r.ReadU8("MULT")
		op.RR = r.ReadU8("RR")
		op.SL = r.ReadU8("SL")
		op.TL = r.ReadU8("TL")
		op.DT2 = r.ReadU8("DT2")
		op.RS = r.ReadU8("RS")
		op.DT = r.ReadU8("DT")
		op.D2R = r.ReadU8("D2R")
		op.SSGEnv = r.ReadU8("SSG-EG")
		op.DAM = r.ReadU8("DAM")
		op.DVB = r.ReadU8("DVB")
		op.EGT = r.ReadU8("EGT")
		op.KSL = r.ReadU8("KSL")
		op.Sus = r.ReadU8("SUS")
		op.Vib = r.ReadU8("VIB")
		op.WS = r.ReadU8("WS")
		op.KSR = r.ReadU8("KSR")
		r.Skip(legacyOpSize-20, "reserved")
		op.Enable = j < int(f.Ops)
	}
	if err := r.Err(); err != nil {
		return err
	}
	if !ins.Type.IsFM() {
		d.warnf(bin.WarnLossy, "only the name and FM section of a %s instrument are imported", ins.Type)
	}
	d.add(ins)
	return nil
}
