package ins

import (
	"bytes"
	"path/filepath"
	"slices"
	"strings"
)

// Format identifies an instrument file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatFUI
	FormatFUILegacy
	FormatDMP
	FormatTFI
	FormatVGI
	FormatFTI
	FormatS3I
	FormatSBI
	FormatOPLI
	FormatOPNI
	FormatWOPL
	FormatWOPN
	FormatY12
	FormatBNK
	FormatFF
	FormatOPM
)

var formatNames = [...]string{
	FormatUnknown:   "unknown",
	FormatFUI:       "Furnace instrument",
	FormatFUILegacy: "Furnace instrument (legacy)",
	FormatDMP:       "DefleMask preset",
	FormatTFI:       "TFM Music Maker instrument",
	FormatVGI:       "VGM Music Maker instrument",
	FormatFTI:       "FamiTracker instrument",
	FormatS3I:       "Scream Tracker 3 instrument",
	FormatSBI:       "Sound Blaster instrument",
	FormatOPLI:      "OPL2/3 instrument",
	FormatOPNI:      "OPN2 instrument",
	FormatWOPL:      "OPL2/3 bank",
	FormatWOPN:      "OPN2 bank",
	FormatY12:       "Gens KMod patch dump",
	FormatBNK:       "AdLib bank",
	FormatFF:        "PMD FF bank",
	FormatOPM:       "VOPM patch",
}

func (f Format) String() string {
	if f >= 0 && int(f) < len(formatNames) {
		return formatNames[f]
	}
	return formatNames[FormatUnknown]
}

// Signatures checked before the extension.
const (
	MagicFUI       = "FINS"
	MagicFUILegacy = "-Furnace instr.-"
)

var extensions = map[string]Format{
	".dmp":  FormatDMP,
	".tfi":  FormatTFI,
	".vgi":  FormatVGI,
	".fti":  FormatFTI,
	".s3i":  FormatS3I,
	".sbi":  FormatSBI,
	".opli": FormatOPLI,
	".opni": FormatOPNI,
	".wopl": FormatWOPL,
	".wopn": FormatWOPN,
	".y12":  FormatY12,
	".bnk":  FormatBNK,
	".ff":   FormatFF,
	".opm":  FormatOPM,
	".fui":  FormatFUI,
}

// Extensions returns every extension Detect recognizes, with the leading dot.
func Extensions() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// Detect picks the format of an instrument file from its first bytes and,
// failing that, from the extension of filename.
func Detect(prefix []byte, filename string) Format {
	switch {
	case bytes.HasPrefix(prefix, []byte(MagicFUI)):
		return FormatFUI
	case bytes.HasPrefix(prefix, []byte(MagicFUILegacy)):
		return FormatFUILegacy
	}
	if f, ok := extensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return f
	}
	return FormatUnknown
}
