// Package ins decodes standalone instrument files and instrument banks.
//
// A file is dispatched on its contents first (Furnace's self-describing
// magics) and on its extension otherwise. Every format produces zero or more
// song.Instrument values; banks skip entries that fail to decode and record a
// warning for each.
package ins

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

// Config controls an instrument decode.
type Config struct {
	// Logger receives progress at Debug level and warnings at Warn level.
	// If nil, logrus.StandardLogger() is used.
	Logger logrus.FieldLogger
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

// Result holds the instruments decoded from one file.
type Result struct {
	Format      Format
	Instruments []*song.Instrument
	Warnings    bin.Warnings
}

// File is one entry of a batch decode.
type File struct {
	Name string
	Data []byte
}

// FileResult is the outcome for one entry of a batch decode.
// Exactly one of Result and Err is set.
type FileResult struct {
	Name   string
	Result *Result
	Err    error
}

// BatchResult holds the outcome of every file of a batch, in input order.
type BatchResult struct {
	Files []FileResult
}

// Instruments returns every instrument decoded by the batch, in file order.
func (b *BatchResult) Instruments() []*song.Instrument {
	var out []*song.Instrument
	for _, f := range b.Files {
		if f.Result != nil {
			out = append(out, f.Result.Instruments...)
		}
	}
	return out
}

// Failed returns the files that could not be decoded.
func (b *BatchResult) Failed() []FileResult {
	var out []FileResult
	for _, f := range b.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

type decodeFunc func(d *decoder) error

var decoders = map[Format]decodeFunc{
	FormatFUI:       decodeFUI,
	FormatFUILegacy: decodeFUILegacy,
	FormatDMP:       decodeDMP,
	FormatTFI:       decodeTFI,
	FormatVGI:       decodeVGI,
	FormatFTI:       decodeFTI,
	FormatS3I:       decodeS3I,
	FormatSBI:       decodeSBI,
	FormatOPLI:      decodeOPLI,
	FormatOPNI:      decodeOPNI,
	FormatWOPL:      decodeWOPL,
	FormatWOPN:      decodeWOPN,
	FormatY12:       decodeY12,
	FormatBNK:       decodeBNK,
	FormatFF:        decodeFF,
	FormatOPM:       decodeOPM,
}

// decoder is the state shared by every format decoder.
type decoder struct {
	r    *bin.Reader
	data []byte
	stem string // File name without directory and extension.
	log  logrus.FieldLogger

	out      []*song.Instrument
	warnings bin.Warnings
}

// Decode decodes one instrument file. The filename picks the format when the
// data carries no magic, and names instruments that have no name of their
// own. Any failure fails the whole call.
func Decode(data []byte, filename string, cfg Config) (*Result, error) {
	format := Detect(data, filename)
	fn, ok := decoders[format]
	if !ok {
		return nil, bin.Unrecognizedf("%q is not a known instrument format", filepath.Base(filename))
	}

	d := &decoder{
		r:    bin.NewReader(data),
		data: data,
		stem: stem(filename),
		log: cfg.logger().WithFields(logrus.Fields{
			"file":   filepath.Base(filename),
			"format": format.String(),
		}),
	}
	d.log.Debug("decoding instrument file")
	if err := fn(d); err != nil {
		d.log.WithError(err).Debug("instrument decode failed")
		return nil, err
	}
	if err := d.r.Err(); err != nil {
		return nil, err
	}
	d.log.WithField("count", len(d.out)).Debug("instruments decoded")
	return &Result{Format: format, Instruments: d.out, Warnings: d.warnings}, nil
}

// DecodeBatch decodes every file on its own. A file that fails to decode
// is reported in its FileResult and doesn't affect the others.
func DecodeBatch(files []File, cfg Config) *BatchResult {
	res := &BatchResult{Files: make([]FileResult, 0, len(files))}
	for _, f := range files {
		r, err := Decode(f.Data, f.Name, cfg)
		if err != nil {
			cfg.logger().WithError(err).WithField("file", f.Name).Warn("skipping instrument file")
			err = fmt.Errorf("%s: %w", f.Name, err)
		}
		res.Files = append(res.Files, FileResult{Name: f.Name, Result: r, Err: err})
	}
	return res
}

func stem(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// warnf records a warning at the current offset and logs it.
func (d *decoder) warnf(kind bin.WarningKind, format string, args ...any) {
	d.warnAt(kind, d.r.Tell(), format, args...)
}

func (d *decoder) warnAt(kind bin.WarningKind, offset int, format string, args ...any) {
	d.warnings.Addf(kind, offset, format, args...)
	w := d.warnings[len(d.warnings)-1]
	d.log.WithFields(logrus.Fields{
		"kind":   kind.String(),
		"offset": w.Offset,
	}).Warn(w.Message)
}

// add appends ins, naming it after the file if it has no name.
func (d *decoder) add(ins *song.Instrument) {
	if ins.Name == "" {
		ins.Name = d.stem
	}
	d.out = append(d.out, ins)
}

// addEntry appends an instrument of a bank, naming it after its position if
// it has no name.
func (d *decoder) addEntry(ins *song.Instrument, index int) {
	if ins.Name == "" {
		ins.Name = fmt.Sprintf("%s %d", d.stem, index)
	}
	d.out = append(d.out, ins)
}

// skipEntry records a bank entry that failed to decode.
func (d *decoder) skipEntry(index int, err error) {
	d.warnf(bin.WarnSkippedEntry, "entry %d skipped: %v", index, err)
}

// checkTrailing warns about bytes left after the last field.
func (d *decoder) checkTrailing() {
	if n := d.r.Remaining(); n > 0 {
		d.warnf(bin.WarnTrailingData, "%d bytes left over after the instrument", n)
	}
}

// requireSize fails if the file is shorter than n bytes and warns if it is longer.
func (d *decoder) requireSize(n int) error {
	if d.r.Len() < n {
		// Read the whole record so the error carries the end-of-data kind.
		d.r.Skip(n, "record")
		return d.r.Err()
	}
	if d.r.Len() > n {
		d.warnAt(bin.WarnTrailingData, n, "%d bytes left over after the %d-byte record", d.r.Len()-n, n)
	}
	return nil
}

// newFM returns an FM instrument with ops operators enabled.
func newFM(t song.InsType, ops int) *song.Instrument {
	ins := song.NewInstrument(t)
	ins.FM.Ops = uint8(ops)
	for j := ops; j < len(ins.FM.Op); j++ {
		ins.FM.Op[j].Enable = false
	}
	return ins
}
