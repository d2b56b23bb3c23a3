package song

import "fmt"

// Chip identifies either a file-level system (as stored in a module) or one of
// the emulated chips a compound system expands into.
type Chip int

const (
	ChipNone Chip = iota

	ChipYMU759
	ChipGenesis    // YM2612 + SN76489
	ChipGenesisExt // YM2612 with extended channel 3 + SN76489
	ChipSMS        // SN76489
	ChipSMSOPLL    // SN76489 + YM2413
	ChipGB
	ChipPCE
	ChipNES
	ChipNESVRC7
	ChipNESFDS
	ChipC64_8580
	ChipC64_6581
	ChipArcade // YM2151 + SegaPCM
	ChipYM2610
	ChipYM2610Ext
	ChipMSX2 // AY-3-8910 + SCC

	// Chips that only appear after expansion.
	ChipYM2612
	ChipYM2612Ext
	ChipOPLL
	ChipVRC7
	ChipFDS
	ChipYM2151
	ChipSegaPCMCompat
	ChipAY8910
	ChipSCC
)

type chipInfo struct {
	name     string
	fileID   uint8 // Module system byte, 0 if the chip can't appear in a module header.
	channels int
	waveMax  int32
}

var chips = map[Chip]chipInfo{
	ChipYMU759:        {"YMU759", 0x01, 17, 31},
	ChipGenesis:       {"Sega Genesis", 0x02, 10, 31},
	ChipGenesisExt:    {"Sega Genesis (extended channel 3)", 0x42, 13, 31},
	ChipSMS:           {"Sega Master System", 0x03, 4, 31},
	ChipSMSOPLL:       {"Sega Master System + FM expansion", 0x43, 13, 31},
	ChipGB:            {"Game Boy", 0x04, 4, 15},
	ChipPCE:           {"PC Engine", 0x05, 6, 31},
	ChipNES:           {"NES", 0x06, 5, 31},
	ChipNESVRC7:       {"NES + Konami VRC7", 0x46, 11, 31},
	ChipNESFDS:        {"Famicom Disk System", 0x86, 6, 63},
	ChipC64_8580:      {"Commodore 64 (8580)", 0x07, 3, 31},
	ChipC64_6581:      {"Commodore 64 (6581)", 0x47, 3, 31},
	ChipArcade:        {"Arcade (YM2151 + SegaPCM)", 0x08, 13, 31},
	ChipYM2610:        {"Neo Geo CD", 0x09, 13, 31},
	ChipYM2610Ext:     {"Neo Geo CD (extended channel 2)", 0x49, 16, 31},
	ChipMSX2:          {"MSX + SCC", 0x0a, 8, 31},
	ChipYM2612:        {"Yamaha YM2612", 0, 6, 31},
	ChipYM2612Ext:     {"Yamaha YM2612 (extended channel 3)", 0, 9, 31},
	ChipOPLL:          {"Yamaha YM2413", 0, 9, 31},
	ChipVRC7:          {"Konami VRC7", 0, 6, 31},
	ChipFDS:           {"Famicom Disk System (chip)", 0, 1, 63},
	ChipYM2151:        {"Yamaha YM2151", 0, 8, 31},
	ChipSegaPCMCompat: {"SegaPCM (compatible)", 0, 5, 31},
	ChipAY8910:        {"AY-3-8910", 0, 3, 31},
	ChipSCC:           {"Konami SCC", 0, 5, 31},
}

var chipsByFileID = func() map[uint8]Chip {
	m := make(map[uint8]Chip)
	for c, info := range chips {
		if info.fileID != 0 {
			m[info.fileID] = c
		}
	}
	return m
}()

// ChipFromFileID maps a module system byte to a Chip.
func ChipFromFileID(id uint8) (Chip, bool) {
	c, ok := chipsByFileID[id]
	return c, ok
}

// FileSystems returns every chip that can appear in a module header.
func FileSystems() []Chip {
	var out []Chip
	for c := ChipYMU759; c <= ChipMSX2; c++ {
		out = append(out, c)
	}
	return out
}

func (c Chip) String() string {
	if info, ok := chips[c]; ok {
		return info.name
	}
	return fmt.Sprintf("Chip(%d)", int(c))
}

// FileID returns the module system byte of c, or 0.
func (c Chip) FileID() uint8 { return chips[c].fileID }

// Channels returns the total channel count of c.
func (c Chip) Channels() int { return chips[c].channels }

// WaveMax returns the largest wavetable sample value c can play.
func (c Chip) WaveMax() int32 {
	if info, ok := chips[c]; ok {
		return info.waveMax
	}
	return 31
}

// IsOPLL reports whether FM instruments on c target an OPLL-family chip.
func (c Chip) IsOPLL() bool {
	switch c {
	case ChipSMSOPLL, ChipNESVRC7, ChipOPLL, ChipVRC7:
		return true
	default:
		return false
	}
}

// IsGenesis reports whether c is one of the Genesis systems.
func (c Chip) IsGenesis() bool {
	return c == ChipGenesis || c == ChipGenesisExt
}

// IsC64 reports whether c is one of the SID systems.
func (c Chip) IsC64() bool {
	return c == ChipC64_8580 || c == ChipC64_6581
}

// IsNeoGeo reports whether c is one of the YM2610 systems.
func (c Chip) IsNeoGeo() bool {
	return c == ChipYM2610 || c == ChipYM2610Ext
}

// ChipFlags holds the textual configuration handed to a chip emulator.
type ChipFlags map[string]string

// Set stores v under key, formatted with fmt.Sprint.
func (f ChipFlags) Set(key string, v any) {
	f[key] = fmt.Sprint(v)
}

// A single chip slot in a song.
type ChipConfig struct {
	ID      Chip
	Volume  float64 // 1.0 is full volume.
	Panning float64 // -1.0 (left) to 1.0 (right).
	Flags   ChipFlags
}

// ExpandSystem turns a file-level system into the chips that emulate it.
// Compound systems become two chips; everything else maps to itself.
func ExpandSystem(sys Chip) []ChipConfig {
	one := func(c Chip, vol float64) ChipConfig {
		return ChipConfig{ID: c, Volume: vol, Flags: ChipFlags{}}
	}
	switch sys {
	case ChipGenesis:
		return []ChipConfig{one(ChipYM2612, 1), one(ChipSMS, 0.5)}
	case ChipGenesisExt:
		return []ChipConfig{one(ChipYM2612Ext, 1), one(ChipSMS, 0.5)}
	case ChipArcade:
		return []ChipConfig{one(ChipYM2151, 1), one(ChipSegaPCMCompat, 1)}
	case ChipSMSOPLL:
		return []ChipConfig{one(ChipSMS, 1), one(ChipOPLL, 1)}
	case ChipNESVRC7:
		return []ChipConfig{one(ChipNES, 1), one(ChipVRC7, 1)}
	case ChipNESFDS:
		return []ChipConfig{one(ChipNES, 1), one(ChipFDS, 1)}
	case ChipMSX2:
		ay := one(ChipAY8910, 1)
		// MSX clock (1.79 MHz) with the AY-3-8910 core.
		ay.Flags.Set("clockSel", 0)
		ay.Flags.Set("chipType", 0)
		return []ChipConfig{ay, one(ChipSCC, 1)}
	case ChipGB:
		gb := one(ChipGB, 1)
		gb.Flags.Set("enoughAlready", true)
		return []ChipConfig{gb}
	default:
		return []ChipConfig{one(sys, 1)}
	}
}
