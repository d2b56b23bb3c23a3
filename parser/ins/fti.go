package ins

import (
	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

// FamiTracker instrument files.
const (
	ftiMagic      = "FTI"
	ftiMinVersion = "2.4"
	ftiNewest     = "2.4"
	ftiMaxName    = 1024

	ftiWaveSize = 64
	ftiModSize  = 32
	ftiMaxN163  = 240 // Longest N163 wave.
	ftiMaxWaves = 64
)

// Chip an FTI instrument is written for.
const (
	ft2A03 = 1 + iota
	ftVRC6
	ftVRC7
	ftFDS
	ftN163
	ftS5B
)

var ftiTypes = map[uint8]song.InsType{
	ft2A03: song.InsNES,
	ftVRC6: song.InsVRC6,
	ftVRC7: song.InsOPLL,
	ftFDS:  song.InsFDS,
	ftN163: song.InsN163,
	ftS5B:  song.InsAY,
}

// Sequence slots, in file order.
const (
	ftSeqVol = iota
	ftSeqArp
	ftSeqPitch
	ftSeqHiPitch
	ftSeqDuty
)

// Arpeggio sequence settings.
const (
	ftArpAbsolute = 0
	ftArpFixed    = 1
	ftArpRelative = 2
)

// ftSequence is one decoded envelope.
type ftSequence struct {
	values        []int32
	loop, release int32
	setting       int32
}

func decodeFTI(d *decoder) error {
	r := d.r
	r.StartStage("header")
	if magic := r.ReadString(3, "signature"); r.Err() == nil && magic != ftiMagic {
		return r.Invariantf("missing %q signature", ftiMagic)
	}
	version := r.ReadString(3, "version")
	kind := r.ReadU8("type")
	nameLen := r.ReadI32("name length")
	if err := r.Err(); err != nil {
		return err
	}
	// "2.4" style versions compare correctly as strings.
	if version < ftiMinVersion {
		return r.Invariantf("instrument version %q is older than %q", version, ftiMinVersion)
	}
	if version > ftiNewest {
		d.warnf(bin.WarnForwardVersion, "instrument version %q is newer than %q", version, ftiNewest)
	}
	t, ok := ftiTypes[kind]
	if !ok {
		return r.Invariantf("unknown instrument type %d", kind)
	}
	if nameLen < 0 || nameLen > ftiMaxName {
		return r.Invariantf("name length %d out of range", nameLen)
	}
	ins := song.NewInstrument(t)
	ins.Name = r.ReadString(int(nameLen), "name")
	d.log.WithField("version", version).WithField("type", t.String()).Debug("instrument header decoded")

	var err error
	switch kind {
	case ftVRC7:
		err = d.readFTIVRC7(ins)
	case ftFDS:
		err = d.readFTIFDS(ins)
	default:
		err = d.readFTISequences(ins, kind)
		if err == nil && kind == ftN163 {
			err = d.readFTIN163(ins)
		}
	}
	if err != nil {
		return err
	}
	if err := r.Err(); err != nil {
		return err
	}
	d.add(ins)

	if kind == ft2A03 && r.Remaining() > 0 {
		d.warnf(bin.WarnLossy, "DPCM sample assignments are not imported")
		return nil
	}
	d.checkTrailing()
	return nil
}

// readFTISequence reads the count, loop, release and setting fields and the
// values of one sequence.
func readFTISequence(r *bin.Reader) (ftSequence, error) {
	n := r.ReadU32("sequence length")
	s := ftSequence{
		loop:    r.ReadI32("sequence loop"),
		release: r.ReadI32("sequence release"),
		setting: r.ReadI32("sequence setting"),
	}
	if err := r.Err(); err != nil {
		return s, err
	}
	if n > song.MaxMacroLen {
		return s, r.Invariantf("sequence length %d exceeds %d", n, song.MaxMacroLen)
	}
	s.values = make([]int32, 0, n)
	for k := uint32(0); k < n; k++ {
		s.values = append(s.values, int32(r.ReadI8("sequence value")))
	}
	return s, r.Err()
}

func (s ftSequence) apply(m *song.Macro) {
	m.Set(s.values, int(s.loop))
	m.Release = int(s.release)
	if s.release < 0 || int(s.release) >= len(s.values) {
		m.Release = -1
	}
}

func (d *decoder) readFTISequences(ins *song.Instrument, kind uint8) error {
	r := d.r
	r.StartStage("sequences")
	count := int(r.ReadU8("sequence count"))
	for i := 0; i < count; i++ {
		r.SetStageIndex(i)
		if !r.ReadBool("sequence enabled") {
			continue
		}
		seq, err := readFTISequence(r)
		if err != nil {
			return err
		}
		std := &ins.Std
		switch i {
		case ftSeqVol:
			seq.apply(std.Macro(song.MacroVol))
		case ftSeqArp:
			m := std.Macro(song.MacroArp)
			seq.apply(m)
			switch seq.setting {
			case ftArpFixed:
				m.Mode = song.ArpFixed
			case ftArpRelative:
				d.warnf(bin.WarnLossy, "relative arpeggio imported as absolute")
			}
		case ftSeqPitch:
			m := std.Macro(song.MacroPitch)
			seq.apply(m)
			m.Mode = uint8(seq.setting)
		case ftSeqHiPitch:
			if len(seq.values) > 0 {
				d.warnf(bin.WarnLossy, "hi-pitch sequence is not imported")
			}
		case ftSeqDuty:
			// N163 uses the duty slot to select waves.
			if kind == ftN163 {
				seq.apply(std.Macro(song.MacroWave))
			} else {
				seq.apply(std.Macro(song.MacroDuty))
			}
		default:
			d.warnf(bin.WarnLossy, "sequence %d is not imported", i)
		}
	}
	return r.Err()
}

// readFTIVRC7 reads the patch number and the eight custom patch registers.
func (d *decoder) readFTIVRC7(ins *song.Instrument) error {
	r := d.r
	r.StartStage("VRC7 patch")
	patch := r.ReadU32("patch")
	regs := r.ReadBytes(8, "patch registers")
	if err := r.Err(); err != nil {
		return err
	}
	if patch > 15 {
		return r.Invariantf("VRC7 patch %d out of range", patch)
	}
	ins.FM.Ops = 2
	ins.FM.Op[2].Enable = false
	ins.FM.Op[3].Enable = false
	ins.FM.OPLLPreset = uint8(patch)
	ins.VRC7Patch = uint8(patch)

	mod, car := &ins.FM.Op[0], &ins.FM.Op[1]
	for k, op := range []*song.Operator{mod, car} {
		c := regs[k]
		op.AM = c >> 7
		op.Vib = (c >> 6) & 1
		op.EGT = (c >> 5) & 1
		op.KSR = (c >> 4) & 1
		op.Mult = c & 15
		op.AR = regs[4+k] >> 4
		op.DR = regs[4+k] & 15
		op.SL = regs[6+k] >> 4
		op.RR = regs[6+k] & 15
	}
	mod.KSL = regs[2] >> 6
	mod.TL = regs[2] & 63
	car.KSL = regs[3] >> 6
	car.WS = (regs[3] >> 4) & 1
	mod.WS = (regs[3] >> 3) & 1
	ins.FM.FB = regs[3] & 7
	return nil
}

// readFTIFDS reads the wave, the modulation table and settings, and the
// volume, arpeggio and pitch sequences, which have no enable flags.
func (d *decoder) readFTIFDS(ins *song.Instrument) error {
	r := d.r
	r.StartStage("FDS wave")
	wave := r.ReadBytes(ftiWaveSize, "wave")
	mod := r.ReadBytes(ftiModSize, "modulation table")
	ins.FDS.ModSpeed = r.ReadI32("modulation speed")
	ins.FDS.ModDepth = r.ReadI32("modulation depth")
	delay := r.ReadI32("modulation delay")
	if err := r.Err(); err != nil {
		return err
	}
	w := &song.Wavetable{Data: make([]int32, len(wave)), Max: 63}
	for k, v := range wave {
		w.Data[k] = int32(v & 63)
	}
	ins.Waves = append(ins.Waves, w)
	for k, v := range mod {
		ins.FDS.ModTable[k] = int8(v & 7)
	}
	if delay != 0 {
		d.warnf(bin.WarnLossy, "modulation delay %d is not imported", delay)
	}

	r.StartStage("FDS sequences")
	for i, c := range []song.MacroCode{song.MacroVol, song.MacroArp, song.MacroPitch} {
		r.SetStageIndex(i)
		seq, err := readFTISequence(r)
		if err != nil {
			return err
		}
		seq.apply(ins.Std.Macro(c))
		if c == song.MacroArp && seq.setting == ftArpFixed {
			ins.Std.Macro(c).Mode = song.ArpFixed
		}
	}
	return nil
}

// readFTIN163 reads the wave size, position and count, then every wave.
func (d *decoder) readFTIN163(ins *song.Instrument) error {
	r := d.r
	r.StartStage("N163 waves")
	size := r.ReadI32("wave size")
	pos := r.ReadI32("wave position")
	count := r.ReadI32("wave count")
	if err := r.Err(); err != nil {
		return err
	}
	if size <= 0 || size > ftiMaxN163 {
		return r.Invariantf("wave size %d out of range", size)
	}
	if pos < 0 || pos > 255 {
		return r.Invariantf("wave position %d out of range", pos)
	}
	if count <= 0 || count > ftiMaxWaves {
		return r.Invariantf("wave count %d out of range", count)
	}
	ins.N163.WaveLen = uint8(size)
	ins.N163.WavePos = uint8(pos)
	for i := 0; i < int(count); i++ {
		r.SetStageIndex(i)
		b := r.ReadBytes(int(size), "wave")
		if err := r.Err(); err != nil {
			return err
		}
		w := &song.Wavetable{Data: make([]int32, len(b)), Max: 15}
		for k, v := range b {
			w.Data[k] = int32(v & 15)
		}
		ins.Waves = append(ins.Waves, w)
	}
	return nil
}
