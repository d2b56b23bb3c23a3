package parser

import (
	"bytes"

	"github.com/QEStudios/TrackerImporter/parser/dmf"
	"github.com/QEStudios/TrackerImporter/parser/ins"
)

// Format identifies a module format.
type Format int

const (
	FormatUnknown Format = iota
	FormatDMF
)

func (f Format) String() string {
	switch f {
	case FormatDMF:
		return "DefleMask module"
	default:
		return "unknown"
	}
}

// DetectModule looks at the first bytes of data, at most len(dmf.Magic).
// Compressed modules are not recognized until they are inflated.
func DetectModule(prefix []byte) Format {
	if bytes.HasPrefix(prefix, []byte(dmf.Magic)) {
		return FormatDMF
	}
	return FormatUnknown
}

// DetectInstrument picks the instrument format from the file's magic and,
// failing that, from the extension of filename.
func DetectInstrument(prefix []byte, filename string) ins.Format {
	return ins.Detect(prefix, filename)
}

// IsModuleFile reports whether data holds a module, compressed or not.
func IsModuleFile(data []byte) bool {
	return DetectModule(data) == FormatDMF || isZlib(data)
}
