package ins

import (
	"bytes"
	"fmt"
	"io"

	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

// oplRegs holds the five per-operator registers of an OPL chip.
type oplRegs struct {
	char, scale, ad, sr, wave uint8
}

func (g oplRegs) apply(op *song.Operator) {
	op.AM = g.char >> 7
	op.Vib = (g.char >> 6) & 1
	op.EGT = (g.char >> 5) & 1
	op.KSR = (g.char >> 4) & 1
	op.Mult = g.char & 15
	op.KSL = g.scale >> 6
	op.TL = g.scale & 63
	op.AR = g.ad >> 4
	op.DR = g.ad & 15
	op.SL = g.sr >> 4
	op.RR = g.sr & 15
	op.WS = g.wave & 7
}

// setFBCon unpacks the OPL feedback/connection register.
func setFBCon(f *song.FM, b uint8) {
	f.FB = (b >> 1) & 7
	f.Alg = b & 1
}

// readOPLPair reads the 11 register bytes shared by SBI and S3I: each
// register for the modulator then the carrier, then feedback/connection.
func readOPLPair(r *bin.Reader) *song.Instrument {
	var mod, car oplRegs
	for _, p := range [][2]*uint8{
		{&mod.char, &car.char},
		{&mod.scale, &car.scale},
		{&mod.ad, &car.ad},
		{&mod.sr, &car.sr},
		{&mod.wave, &car.wave},
	} {
		*p[0] = r.ReadU8("modulator register")
		*p[1] = r.ReadU8("carrier register")
	}
	ins := newFM(song.InsOPL, 2)
	mod.apply(&ins.FM.Op[0])
	car.apply(&ins.FM.Op[1])
	setFBCon(&ins.FM, r.ReadU8("FB/CON"))
	return ins
}

// Scream Tracker 3 AdLib instrument.
const (
	s3iSize  = 80
	s3iMagic = "SCRI"
)

func decodeS3I(d *decoder) error {
	if err := d.requireSize(s3iSize); err != nil {
		return err
	}
	r := d.r
	r.StartStage("instrument")
	if !bytes.Equal(d.data[76:80], []byte(s3iMagic)) {
		return r.Invariantf("missing %q signature", s3iMagic)
	}
	kind := r.ReadU8("type")
	if kind < 2 || kind > 7 {
		return r.Invariantf("instrument type %d is not an AdLib instrument", kind)
	}
	r.Skip(15, "file name")
	ins := readOPLPair(r)
	r.Skip(1, "unused register")
	r.Skip(20, "volume, disk and C2 speed")
	ins.Name = r.ReadString(28, "name")
	if err := r.Err(); err != nil {
		return err
	}
	d.add(ins)
	return nil
}

// Sound Blaster instrument.
const (
	sbiSize  = 52
	sbiMagic = "SBI\x1a"
)

func decodeSBI(d *decoder) error {
	if err := d.requireSize(sbiSize); err != nil {
		return err
	}
	r := d.r
	r.StartStage("instrument")
	if !bytes.HasPrefix(d.data, []byte(sbiMagic)) {
		return r.Invariantf("missing %q signature", sbiMagic)
	}
	r.Skip(4, "signature")
	name := r.ReadString(32, "name")
	ins := readOPLPair(r)
	ins.Name = name
	if err := r.Err(); err != nil {
		return err
	}
	d.add(ins)
	return nil
}

// AdLib Visual Composer bank.
const (
	bnkMagic      = "ADLIB-"
	bnkRecordSize = 30
)

func decodeBNK(d *decoder) error {
	r := d.r
	r.StartStage("header")
	major := r.ReadU8("major version")
	minor := r.ReadU8("minor version")
	if magic := r.ReadString(6, "signature"); r.Err() == nil && magic != bnkMagic {
		return r.Invariantf("missing %q signature", bnkMagic)
	}
	used := int(r.ReadU16("used count"))
	count := int(r.ReadU16("instrument count"))
	nameOff := int64(r.ReadU32("name table offset"))
	dataOff := int64(r.ReadU32("data offset"))
	if err := r.Err(); err != nil {
		return err
	}
	d.log.WithField("version", [2]uint8{major, minor}).WithField("used", used).Debug("bank header decoded")

	r.StartStage("name table")
	if !r.Seek(nameOff, io.SeekStart) {
		return r.Invariantf("name table offset %d is outside the file", nameOff)
	}
	for i := 0; i < count; i++ {
		r.SetStageIndex(i)
		index := int64(r.ReadU16("data index"))
		inUse := r.ReadBool("used flag")
		name := r.ReadString(9, "name")
		if err := r.Err(); err != nil {
			return err
		}
		if !inUse {
			continue
		}
		start := dataOff + index*bnkRecordSize
		if start+bnkRecordSize > int64(len(d.data)) {
			d.skipEntry(i, fmt.Errorf("record %d lies outside the file", index))
			continue
		}
		ins := readBNKRecord(bin.NewReader(d.data[start : start+bnkRecordSize]))
		ins.Name = name
		d.addEntry(ins, i)
	}
	return nil
}

// readBNKRecord decodes one 30-byte record: percussion flags, then 13
// parameters per operator and the two waveform selects.
func readBNKRecord(r *bin.Reader) *song.Instrument {
	r.Skip(2, "percussion")
	ins := newFM(song.InsOPL, 2)
	var fb, con uint8
	for j := 0; j < 2; j++ {
		op := &ins.FM.Op[j]
		op.KSL = r.ReadU8("KSL")
		op.Mult = r.ReadU8("MULT")
		f := r.ReadU8("feedback")
		op.AR = r.ReadU8("AR")
		op.SL = r.ReadU8("SL")
		op.EGT = r.ReadU8("EG type")
		op.DR = r.ReadU8("DR")
		op.RR = r.ReadU8("RR")
		op.TL = r.ReadU8("TL")
		op.AM = r.ReadU8("AM")
		op.Vib = r.ReadU8("VIB")
		op.KSR = r.ReadU8("KSR")
		c := r.ReadU8("connection")
		if j == 0 {
			fb, con = f, c
		}
	}
	ins.FM.Op[0].WS = r.ReadU8("modulator waveform") & 7
	ins.FM.Op[1].WS = r.ReadU8("carrier waveform") & 7
	ins.FM.FB = fb & 7
	// The bank stores 1 for frequency modulation, the inverse of the register bit.
	ins.FM.Alg = 0
	if con == 0 {
		ins.FM.Alg = 1
	}
	return ins
}
