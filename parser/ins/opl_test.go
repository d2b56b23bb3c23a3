package ins

import (
	"errors"
	"slices"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

// oplPair is an SBI/S3I register block: each register for the modulator
// then the carrier, then feedback/connection.
var oplPair = []byte{0xe1, 0x21, 0x8f, 0x00, 0xf2, 0xa3, 0x45, 0x36, 0x01, 0x02, 0x0b}

func checkOPLPair(t *testing.T, ins *song.Instrument) {
	t.Helper()
	if ins.Type != song.InsOPL || ins.FM.Ops != 2 {
		t.Fatalf("expected 2-op OPL instrument, got %v with %d ops", ins.Type, ins.FM.Ops)
	}
	if ins.FM.FB != 5 || ins.FM.Alg != 1 {
		t.Errorf("expected fb 5 alg 1, got fb %d alg %d", ins.FM.FB, ins.FM.Alg)
	}
	mod := song.Operator{Enable: true, AM: 1, Vib: 1, EGT: 1, Mult: 1, KSL: 2, TL: 15, AR: 15, DR: 2, SL: 4, RR: 5, WS: 1, DT: 3}
	car := song.Operator{Enable: true, EGT: 1, Mult: 1, AR: 10, DR: 3, SL: 3, RR: 6, WS: 2, DT: 3}
	if ins.FM.Op[0] != mod {
		t.Errorf("expected modulator %s, got %s", spew.Sdump(mod), spew.Sdump(ins.FM.Op[0]))
	}
	if ins.FM.Op[1] != car {
		t.Errorf("expected carrier %s, got %s", spew.Sdump(car), spew.Sdump(ins.FM.Op[1]))
	}
	if ins.FM.Op[2].Enable || ins.FM.Op[3].Enable {
		t.Errorf("expected operators 3 and 4 to be disabled")
	}
}

func sbiPatch(name string) []byte {
	b := &bytesBuilder{}
	b.str(sbiMagic).fixed(name, 32).raw(oplPair).zeros(5)
	return b.buf
}

func TestSBI(t *testing.T) {
	res := mustDecodeOne(t, sbiPatch("Organ"), "x.sbi")
	ins := res.Instruments[0]
	if ins.Name != "Organ" {
		t.Errorf("expected name Organ, got %q", ins.Name)
	}
	checkOPLPair(t, ins)

	bad := sbiPatch("Organ")
	bad[3] = 0
	if _, err := Decode(bad, "x.sbi", quietConfig()); !errors.Is(err, bin.ErrInvariant) {
		t.Errorf("expected invariant error for a bad signature, got %v", err)
	}
}

func s3iPatch(kind uint8, magic string) []byte {
	b := &bytesBuilder{}
	b.u8(kind).fixed("CLAV.S3I", 15).raw(oplPair).zeros(1).zeros(20).fixed("Clavinet", 28).str(magic)
	return b.buf
}

func TestS3I(t *testing.T) {
	res := mustDecodeOne(t, s3iPatch(2, s3iMagic), "x.s3i")
	ins := res.Instruments[0]
	if ins.Name != "Clavinet" {
		t.Errorf("expected name Clavinet, got %q", ins.Name)
	}
	checkOPLPair(t, ins)

	tests := []struct {
		name  string
		kind  uint8
		magic string
	}{
		{"sample instrument", 1, s3iMagic},
		{"unknown type", 8, s3iMagic},
		{"missing signature", 2, "SCRS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(s3iPatch(tt.kind, tt.magic), "x.s3i", quietConfig())
			if !errors.Is(err, bin.ErrInvariant) {
				t.Errorf("expected invariant error, got %v", err)
			}
		})
	}
}

type bnkEntry struct {
	index uint16
	used  bool
	name  string
}

func bnkRecord(fb, con, modWave, carWave uint8) []byte {
	b := &bytesBuilder{}
	b.u8(0, 0)
	b.u8(1, 2, fb, 15, 3, 1, 4, 5, 20, 1, 0, 1, con)
	b.u8(0, 1, 0, 14, 2, 0, 3, 6, 0, 0, 1, 0, 0)
	b.u8(modWave, carWave)
	return b.buf
}

func bnkFile(entries []bnkEntry, records ...[]byte) []byte {
	const headerSize = 20
	nameOff := int32(headerSize)
	dataOff := nameOff + int32(len(entries))*12
	b := &bytesBuilder{}
	b.u8(1, 0).str(bnkMagic)
	b.u16(uint16(len(entries)), uint16(len(entries)))
	b.i32(nameOff, dataOff)
	for _, e := range entries {
		used := uint8(0)
		if e.used {
			used = 1
		}
		b.u16(e.index).u8(used).fixed(e.name, 9)
	}
	for _, r := range records {
		b.raw(r)
	}
	return b.buf
}

func TestBNK(t *testing.T) {
	data := bnkFile([]bnkEntry{
		{0, true, "PIANO1"},
		{1, false, "UNUSED"},
		{5, true, "BROKEN"},
		{1, true, "BASS"},
	}, bnkRecord(6, 0, 1, 2), bnkRecord(3, 1, 0, 0))
	res := mustDecode(t, data, "std.bnk")

	var names []string
	for _, ins := range res.Instruments {
		names = append(names, ins.Name)
	}
	if !slices.Equal(names, []string{"PIANO1", "BASS"}) {
		t.Fatalf("expected instruments [PIANO1 BASS], got %v", names)
	}
	if !res.Warnings.Has(bin.WarnSkippedEntry) {
		t.Errorf("expected a skipped entry warning, got %v", res.Warnings.Strings())
	}

	piano := res.Instruments[0]
	if piano.FM.Alg != 1 || piano.FM.FB != 6 {
		t.Errorf("expected alg 1 fb 6, got alg %d fb %d", piano.FM.Alg, piano.FM.FB)
	}
	mod := piano.FM.Op[0]
	if mod.KSL != 1 || mod.Mult != 2 || mod.AR != 15 || mod.TL != 20 || mod.KSR != 1 || mod.WS != 1 {
		t.Errorf("unexpected modulator %s", spew.Sdump(mod))
	}
	if car := piano.FM.Op[1]; car.Vib != 1 || car.AR != 14 || car.WS != 2 {
		t.Errorf("unexpected carrier %s", spew.Sdump(car))
	}
	if bass := res.Instruments[1]; bass.FM.Alg != 0 || bass.FM.FB != 3 {
		t.Errorf("expected alg 0 fb 3, got alg %d fb %d", bass.FM.Alg, bass.FM.FB)
	}
}

func TestBNKBadHeader(t *testing.T) {
	data := bnkFile([]bnkEntry{{0, true, "A"}}, bnkRecord(0, 0, 0, 0))
	data[2] = 'X'
	if _, err := Decode(data, "x.bnk", quietConfig()); !errors.Is(err, bin.ErrInvariant) {
		t.Errorf("expected invariant error for a bad signature, got %v", err)
	}

	data = bnkFile([]bnkEntry{{0, true, "A"}}, bnkRecord(0, 0, 0, 0))
	data[12] = 0xff // name table offset
	if _, err := Decode(data, "x.bnk", quietConfig()); !errors.Is(err, bin.ErrInvariant) {
		t.Errorf("expected invariant error for a name table outside the file, got %v", err)
	}

	data = bnkFile([]bnkEntry{{0, true, "A"}, {1, true, "B"}})
	if _, err := Decode(data[:len(data)-3], "x.bnk", quietConfig()); !errors.Is(err, bin.ErrEndOfData) {
		t.Errorf("expected end of data for a cut name table, got %v", err)
	}
}
