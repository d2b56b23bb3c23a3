// Package dmf decodes DefleMask modules (.dmf), revisions 0x01 through 0x1b.
//
// Every field the format gained, lost or changed over its history is gated on
// the version byte through the rule tables in rules.go, and chip-dependent
// reinterpretations go through the per-file profile in profile.go.
package dmf

import (
	"bytes"

	"github.com/sirupsen/logrus"

	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

// Magic is the signature at the start of every module.
const Magic = ".DelekDefleMask."

// Supported format revisions. Newer files are decoded with the newest rules.
const (
	OldestVersion = 0x01
	NewestVersion = 0x1b
)

// Config controls a module decode.
type Config struct {
	// SkipCompat leaves every compatibility flag at its default instead of
	// emulating the quirks of the tracker that wrote the file.
	SkipCompat bool

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

// Result is a decoded module.
type Result struct {
	Song     *song.Song
	Warnings bin.Warnings
}

type decoder struct {
	r   *bin.Reader
	cfg Config
	log logrus.FieldLogger

	version uint8 // Version used to select rules, never above NewestVersion.
	rules   rules
	prof    profile

	song     *song.Song
	warnings bin.Warnings
}

// Decode decodes a whole module from data.
//
// The song is only returned if every section decoded; any failure discards
// it. Errors are *bin.Error values.
func Decode(data []byte, cfg Config) (*Result, error) {
	if len(data) < len(Magic) || !bytes.Equal(data[:len(Magic)], []byte(Magic)) {
		return nil, bin.Unrecognizedf("missing %q signature", Magic)
	}

	d := &decoder{
		r:    bin.NewReader(data),
		cfg:  cfg,
		log:  cfg.logger(),
		song: &song.Song{Tuning: 440},
	}
	if err := d.decode(); err != nil {
		d.log.WithError(err).Debug("module decode failed")
		return nil, err
	}
	return &Result{Song: d.song, Warnings: d.warnings}, nil
}

// warnf records a warning at the current offset and logs it.
func (d *decoder) warnf(kind bin.WarningKind, format string, args ...any) {
	d.warnings.Addf(kind, d.r.Tell(), format, args...)
	w := d.warnings[len(d.warnings)-1]
	d.log.WithFields(logrus.Fields{
		"kind":   kind.String(),
		"offset": w.Offset,
	}).Warn(w.Message)
}

func (d *decoder) decode() error {
	r := d.r
	r.StartStage("signature")
	r.Skip(len(Magic), "signature")

	if err := d.readVersion(); err != nil {
		return err
	}
	if err := d.readSystem(); err != nil {
		return err
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"header", d.readHeader},
		{"timing", d.readTiming},
		{"orders", d.readOrders},
		{"instruments", d.readInstruments},
		{"wavetables", d.readWavetables},
		{"patterns", d.readPatterns},
		{"samples", d.readSamples},
	}
	for _, step := range steps {
		r.StartStage(step.name)
		start := r.Tell()
		if err := step.fn(); err != nil {
			return err
		}
		if err := r.Err(); err != nil {
			return err
		}
		d.log.WithFields(logrus.Fields{
			"section": step.name,
			"offset":  start,
			"size":    r.Tell() - start,
		}).Debug("section decoded")
	}

	if n := r.Remaining(); n > 0 {
		d.warnf(bin.WarnTrailingData, "file size is larger than it should be (%d bytes left over)", n)
	}

	d.finish()
	return nil
}

func (d *decoder) readVersion() error {
	r := d.r
	r.StartStage("version")
	v := r.ReadU8("version")
	if err := r.Err(); err != nil {
		return err
	}
	if v < OldestVersion {
		return r.Invariantf("version %#02x is not a released format revision", v)
	}
	d.song.Version = v
	d.version = v
	if v > NewestVersion {
		d.warnf(bin.WarnForwardVersion, "this module was created with a more recent version (%#02x, newest known is %#02x)", v, NewestVersion)
		d.version = NewestVersion
	}
	return nil
}

func (d *decoder) readSystem() error {
	r := d.r
	r.StartStage("system")
	sys := song.ChipYMU759
	if d.version >= 0x09 {
		id := r.ReadU8("system")
		if err := r.Err(); err != nil {
			return err
		}
		var ok bool
		if sys, ok = song.ChipFromFileID(id); !ok {
			return r.Invariantf("unknown system %#02x", id)
		}
	}

	rs, ok := selectRules(d.version, sys)
	if !ok {
		return r.Invariantf("no decode rules for version %#02x on %s", d.version, sys)
	}
	d.rules = rs
	d.prof = newProfile(sys, d.version)
	d.song.System = sys

	d.log = d.log.WithFields(logrus.Fields{
		"version": d.song.Version,
		"system":  sys.String(),
	})
	d.log.Debug("decoding module")
	return nil
}

// finish fills in everything derived from what was decoded.
func (d *decoder) finish() {
	s := d.song
	s.Chips = song.ExpandSystem(s.System)
	if s.System.IsNeoGeo() {
		s.Tuning = 443.23
	}
	s.Compat = ResolveCompat(d.version, s.System, d.cfg.SkipCompat)
}
