package ins

import (
	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

// Register dumps list the operators in slot order 1, 3, 2, 4.
var slotOrder = [4]int{0, 2, 1, 3}

// dtNative maps the OPN detune register field (sign and magnitude) to the
// offset form used by song.Operator, where 3 means no detune.
var dtNative = [8]uint8{3, 4, 5, 6, 3, 2, 1, 0}

// opnRegs holds the seven per-operator registers of an OPN chip.
type opnRegs struct {
	dtMul, tl, rsAR, amDR, d2r, slRR, ssg uint8
}

func (g opnRegs) apply(op *song.Operator) {
	op.DT = dtNative[(g.dtMul>>4)&7]
	op.Mult = g.dtMul & 15
	op.TL = g.tl & 127
	op.RS = g.rsAR >> 6
	op.AR = g.rsAR & 31
	op.AM = g.amDR >> 7
	op.DR = g.amDR & 31
	op.D2R = g.d2r & 31
	op.SL = g.slRR >> 4
	op.RR = g.slRR & 15
	op.SSGEnv = g.ssg & 15
}

// setFBAlg unpacks the OPN feedback/algorithm register.
func setFBAlg(f *song.FM, b uint8) {
	f.FB = (b >> 3) & 7
	f.Alg = b & 7
}

// TFM Music Maker: algorithm, feedback and 10 bytes per operator.
const tfiSize = 42

func decodeTFI(d *decoder) error {
	if err := d.requireSize(tfiSize); err != nil {
		return err
	}
	r := d.r
	r.StartStage("patch")
	ins := newFM(song.InsFM, 4)
	f := &ins.FM
	f.Alg = r.ReadU8("algorithm")
	f.FB = r.ReadU8("feedback")
	r.StartSubStage("operator")
	for i, j := range slotOrder {
		r.SetSubStageIndex(i)
		op := &f.Op[j]
		op.Mult = r.ReadU8("MULT")
		op.DT = r.ReadU8("DT")
		op.TL = r.ReadU8("TL")
		op.RS = r.ReadU8("RS")
		op.AR = r.ReadU8("AR")
		op.DR = r.ReadU8("DR")
		op.D2R = r.ReadU8("D2R")
		op.RR = r.ReadU8("RR")
		op.SL = r.ReadU8("SL")
		op.SSGEnv = r.ReadU8("SSG-EG")
	}
	if err := r.Err(); err != nil {
		return err
	}
	d.add(ins)
	return nil
}

// VGM Music Maker: as TFI with an LFO byte, native detune and AM packed with DR.
const vgiSize = 43

func decodeVGI(d *decoder) error {
	if err := d.requireSize(vgiSize); err != nil {
		return err
	}
	r := d.r
	r.StartStage("patch")
	ins := newFM(song.InsFM, 4)
	f := &ins.FM
	f.Alg = r.ReadU8("algorithm")
	f.FB = r.ReadU8("feedback")
	lfo := r.ReadU8("LFO sensitivity")
	f.FMS = lfo & 7
	f.AMS = lfo >> 4
	r.StartSubStage("operator")
	for i, j := range slotOrder {
		r.SetSubStageIndex(i)
		op := &f.Op[j]
		op.Mult = r.ReadU8("MULT")
		op.DT = dtNative[r.ReadU8("DT")&7]
		op.TL = r.ReadU8("TL")
		op.RS = r.ReadU8("RS")
		op.AR = r.ReadU8("AR")
		amDR := r.ReadU8("AM/DR")
		op.DR = amDR & 31
		op.AM = amDR >> 7
		op.D2R = r.ReadU8("D2R")
		op.RR = r.ReadU8("RR")
		op.SL = r.ReadU8("SL")
		op.SSGEnv = r.ReadU8("SSG-EG")
	}
	if err := r.Err(); err != nil {
		return err
	}
	d.add(ins)
	return nil
}

// Gens KMod patch dump: four 16-byte operator blocks, then the patch and
// three 16-byte text fields.
const y12Size = 128

func decodeY12(d *decoder) error {
	if err := d.requireSize(y12Size); err != nil {
		return err
	}
	r := d.r
	r.StartStage("patch")
	ins := newFM(song.InsFM, 4)
	f := &ins.FM
	r.StartSubStage("operator")
	for i, j := range slotOrder {
		r.SetSubStageIndex(i)
		readOPNRegs(r).apply(&f.Op[j])
		r.Skip(9, "padding")
	}
	r.StartSubStage("")
	f.Alg = r.ReadU8("algorithm") & 7
	f.FB = r.ReadU8("feedback") & 7
	r.Skip(14, "padding")
	ins.Name = r.ReadString(16, "name")
	dumper := r.ReadString(16, "dumper")
	game := r.ReadString(16, "game")
	d.log.WithField("dumper", dumper).WithField("game", game).Debug("patch dump decoded")
	if err := r.Err(); err != nil {
		return err
	}
	d.add(ins)
	return nil
}

func readOPNRegs(r *bin.Reader) opnRegs {
	return opnRegs{
		dtMul: r.ReadU8("DT/MUL"),
		tl:    r.ReadU8("TL"),
		rsAR:  r.ReadU8("RS/AR"),
		amDR:  r.ReadU8("AM/DR"),
		d2r:   r.ReadU8("D2R"),
		slRR:  r.ReadU8("SL/RR"),
		ssg:   r.ReadU8("SSG-EG"),
	}
}

// PMD FF banks hold up to 256 voices of 24 operator register bytes, an FB/ALG
// byte and a 7-byte name.
const (
	ffRecordSize = 32
	ffMaxVoices  = 256
)

func decodeFF(d *decoder) error {
	r := d.r
	count := min(r.Len()/ffRecordSize, ffMaxVoices)
	if count == 0 {
		r.Skip(ffRecordSize, "voice")
		return r.Err()
	}
	for i := 0; i < count; i++ {
		r.StartStage("voice")
		r.SetStageIndex(i)
		rec := r.ReadBytes(ffRecordSize, "voice")
		if err := r.Err(); err != nil {
			return err
		}
		if isZero(rec) {
			continue
		}
		d.addEntry(readFFVoice(bin.NewReader(rec)), i)
	}
	d.checkTrailing()
	return nil
}

func readFFVoice(r *bin.Reader) *song.Instrument {
	// Each register is stored for all four slots before the next one.
	var regs [6][4]uint8
	for g := range regs {
		for k := range regs[g] {
			regs[g][k] = r.ReadU8("register")
		}
	}
	ins := newFM(song.InsFM, 4)
	for k, j := range slotOrder {
		g := opnRegs{dtMul: regs[0][k], tl: regs[1][k], rsAR: regs[2][k], amDR: regs[3][k], d2r: regs[4][k], slRR: regs[5][k]}
		g.apply(&ins.FM.Op[j])
	}
	setFBAlg(&ins.FM, r.ReadU8("FB/ALG"))
	ins.Name = r.ReadString(7, "name")
	return ins
}

func isZero(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}
