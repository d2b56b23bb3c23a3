// Package parser is the entry point for every file the importer reads. It
// classifies the input, unwraps compressed modules and hands the bytes to the
// module decoder in parser/dmf or the instrument decoders in parser/ins.
package parser

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/parser/dmf"
	"github.com/QEStudios/TrackerImporter/parser/ins"
)

// DefaultMaxInflatedSize bounds the size of a decompressed module.
const DefaultMaxInflatedSize = 64 << 20

// Config controls every load. The zero value is ready to use.
type Config struct {
	Module     dmf.Config
	Instrument ins.Config

	// MaxInflatedSize caps how many bytes a compressed module may expand to.
	// Zero means DefaultMaxInflatedSize.
	MaxInflatedSize int64

	// Logger is used by the loaders themselves and by any decoder config
	// that has no logger of its own. If nil, logrus.StandardLogger() is used.
	Logger logrus.FieldLogger
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

func (c Config) maxInflated() int64 {
	if c.MaxInflatedSize <= 0 {
		return DefaultMaxInflatedSize
	}
	return c.MaxInflatedSize
}

func (c Config) moduleConfig() dmf.Config {
	mc := c.Module
	if mc.Logger == nil {
		mc.Logger = c.logger()
	}
	return mc
}

func (c Config) instrumentConfig() ins.Config {
	ic := c.Instrument
	if ic.Logger == nil {
		ic.Logger = c.logger()
	}
	return ic
}

// LoadModule decodes a module, inflating it first if it is stored as a zlib
// stream, which is how the tracker writes them.
func LoadModule(data []byte, cfg Config) (*dmf.Result, error) {
	log := cfg.logger()
	if DetectModule(data) == FormatUnknown && isZlib(data) {
		inflated, err := inflate(data, cfg.maxInflated())
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"compressed": len(data),
			"inflated":   len(inflated),
		}).Debug("module inflated")
		data = inflated
	}
	if DetectModule(data) != FormatDMF {
		return nil, bin.Unrecognizedf("not a DefleMask module")
	}
	return dmf.Decode(data, cfg.moduleConfig())
}

// LoadInstruments decodes one instrument file or bank.
func LoadInstruments(data []byte, filename string, cfg Config) (*ins.Result, error) {
	return ins.Decode(data, filename, cfg.instrumentConfig())
}

// LoadInstrumentBatch decodes several instrument files. A file that fails
// is reported in the result without affecting the rest.
func LoadInstrumentBatch(files []ins.File, cfg Config) *ins.BatchResult {
	return ins.DecodeBatch(files, cfg.instrumentConfig())
}

// isZlib reports whether data starts with a valid zlib header using deflate.
func isZlib(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	cmf, flg := data[0], data[1]
	if cmf&0x0f != 8 || cmf>>4 > 7 {
		return false
	}
	return (uint16(cmf)<<8|uint16(flg))%31 == 0
}

func inflate(data []byte, limit int64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, zlibError(err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, zlibError(err)
	}
	if int64(len(out)) > limit {
		return nil, &bin.Error{
			Kind:    bin.KindInvariant,
			Stage:   "zlib",
			Message: fmt.Sprintf("module inflates to more than %d bytes", limit),
		}
	}
	return out, nil
}

func zlibError(err error) *bin.Error {
	return &bin.Error{
		Kind:    bin.KindInvariant,
		Stage:   "zlib",
		Message: fmt.Sprintf("corrupt compressed module: %v", err),
	}
}
