package dmf

import "github.com/QEStudios/TrackerImporter/song"

type fmFixup int

const (
	fixupNone   fmFixup = iota
	fixupYMU759         // 4-op patches swap operators 1 and 2 and algorithms 2 and 3.
)

// profile carries the chip-dependent behaviour of one file. It is built once
// from the system byte and the version, so the field readers never test the
// chip themselves.
type profile struct {
	sys      song.Chip
	channels int
	fixup    fmFixup
	tail     OperatorTail

	// Instrument types produced by FM and standard bodies.
	fmType, stdType song.InsType

	// Standard body blocks.
	hasVolMacro bool
	c64Block    bool
	gbEnvelope  bool // GB hardware envelope stored in the file.
	gbFromMacro bool // GB envelope derived from the volume macro.

	// Instruments with no mode byte are FM.
	implicitFM bool

	// octave returns the octave adjustment for a note on channel ch.
	octave func(ch int) int16

	smsVolumeShift bool
	fdsChannel     int // Instruments used on this channel become FDS, -1 if none.
}

func newProfile(sys song.Chip, version uint8) profile {
	p := profile{
		sys:         sys,
		channels:    sys.Channels(),
		fmType:      song.InsFM,
		stdType:     song.InsStd,
		hasVolMacro: true,
		octave:      func(int) int16 { return 0 },
		fdsChannel:  -1,
	}

	switch sys {
	case song.ChipYMU759:
		p.fixup = fixupYMU759
		p.implicitFM = true
		p.octave = func(int) int16 { return 2 }
	case song.ChipSMSOPLL, song.ChipNESVRC7:
		p.tail = TailOPLL
		p.fmType = song.InsOPLL
	case song.ChipArcade:
		p.fmType = song.InsOPM
	}

	switch {
	case sys == song.ChipGB:
		p.stdType = song.InsGB
		if version >= 0x12 {
			p.hasVolMacro = false
			p.gbEnvelope = true
		} else {
			p.gbFromMacro = true
			p.octave = func(ch int) int16 {
				if ch == 3 {
					return -2
				}
				return 0
			}
		}
	case sys.IsC64():
		p.stdType = song.InsC64
		p.c64Block = true
	case sys.IsNeoGeo(), sys == song.ChipMSX2:
		p.stdType = song.InsAY
	case sys == song.ChipPCE:
		p.stdType = song.InsPCE
	case sys == song.ChipNES, sys == song.ChipNESVRC7, sys == song.ChipNESFDS:
		p.stdType = song.InsNES
	}

	switch {
	case sys == song.ChipSMS && version < 0x0e:
		p.octave = func(int) int16 { return -1 }
	case sys.IsGenesis() && version < 0x0e:
		p.octave = func(ch int) int16 {
			if ch > 5 {
				return -1
			}
			return 0
		}
	case sys == song.ChipMSX2:
		p.octave = func(ch int) int16 {
			if ch < 3 {
				return 1
			}
			return 0
		}
	}

	if sys == song.ChipSMS && version < 0x0a {
		p.smsVolumeShift = true
	}
	if sys == song.ChipNESFDS {
		p.fdsChannel = 5
	}
	return p
}

// insType returns the instrument type for a body of the given mode.
func (p *profile) insType(fm bool) song.InsType {
	if fm {
		return p.fmType
	}
	return p.stdType
}
