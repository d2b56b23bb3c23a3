package song

import (
	"errors"
	"fmt"
)

// SampleDepth is the storage format of a sample.
type SampleDepth int

const (
	DepthYMZ SampleDepth = 3 // YMZ 4-bit ADPCM.
	Depth8   SampleDepth = 8
	Depth16  SampleDepth = 16
)

func (d SampleDepth) String() string {
	switch d {
	case DepthYMZ:
		return "YMZ ADPCM"
	case Depth8:
		return "8-bit"
	case Depth16:
		return "16-bit"
	default:
		return fmt.Sprintf("SampleDepth(%d)", int(d))
	}
}

// Legacy sample parameters.
const (
	DefaultPitch  = 5 // Index of the 1:1 ratio in the legacy pitch table.
	DefaultVolume = 50
	MaxPitch      = 10
)

var (
	ErrTrimWindow = errors.New("trim window outside sample")
	ErrPitchIndex = errors.New("pitch index out of range")
)

// A PCM sample.
type Sample struct {
	Name   string
	Rate   int // Hz.
	Depth  SampleDepth
	Pitch  int // Legacy pitch index, 0..10.
	Volume int // Legacy volume, 50 is unchanged.

	Data8     []int8
	Data16    []int16
	DataADPCM []byte // Nibble-swapped YMZ stream, kept alongside the decoded Data16.

	Samples int
}

type ratio struct{ num, den int }

// Output step per input step. Index 5 plays the sample unchanged.
var legacyPitchTable = [MaxPitch + 1]ratio{
	{1, 6}, {1, 5}, {1, 4}, {1, 3}, {1, 2},
	{1, 1},
	{2, 1}, {3, 1}, {4, 1}, {5, 1}, {6, 1},
}

// LegacyPitchRatio returns the playback speed ratio num/den for a legacy pitch index.
func LegacyPitchRatio(index int) (num, den int, err error) {
	if index < 0 || index > MaxPitch {
		return 0, 0, fmt.Errorf("%w: %d", ErrPitchIndex, index)
	}
	r := legacyPitchTable[index]
	return r.num, r.den, nil
}

// ResampledLength returns ceil(n / ratio) for the given pitch index.
func ResampledLength(n, index int) (int, error) {
	num, den, err := LegacyPitchRatio(index)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}
	return int((int64(n)*int64(den) + int64(num) - 1) / int64(num)), nil
}

// RenderLegacySample applies the legacy pitch and volume settings to raw PCM
// words and returns a new buffer. raw is left untouched.
//
// 8-bit samples are stored as unsigned bytes biased by 0x80 in the low half of
// each word; their output is in the signed 8-bit range.
func RenderLegacySample(raw []int16, depth SampleDepth, pitch, volume int) ([]int16, error) {
	n, err := ResampledLength(len(raw), pitch)
	if err != nil {
		return nil, err
	}
	num, den, _ := LegacyPitchRatio(pitch)

	lo, hi := -32768, 32767
	if depth == Depth8 {
		lo, hi = -128, 127
	}

	out := make([]int16, n)
	for k := range out {
		src := int(int64(k) * int64(num) / int64(den))
		v := int(raw[src])
		if depth == Depth8 {
			v = int(uint8(v)) - 0x80
		}
		v = v * volume / DefaultVolume
		out[k] = int16(min(max(v, lo), hi))
	}
	return out, nil
}

// SetPCM replaces the sample's data with values, stored according to Depth.
func (s *Sample) SetPCM(values []int16) {
	s.Data8 = nil
	s.Data16 = nil
	if s.Depth == Depth8 {
		s.Data8 = make([]int8, len(values))
		for i, v := range values {
			s.Data8[i] = int8(v)
		}
	} else {
		s.Data16 = values
	}
	s.Samples = len(values)
}

// Render resamples raw with the sample's legacy pitch and volume and stores the result.
func (s *Sample) Render(raw []int16) error {
	out, err := RenderLegacySample(raw, s.Depth, s.Pitch, s.Volume)
	if err != nil {
		return err
	}
	s.SetPCM(out)
	return nil
}

// Trim keeps samples [start, end).
func (s *Sample) Trim(start, end int) error {
	if start < 0 || start > end || end > s.Samples {
		return fmt.Errorf("%w: [%d, %d) of %d samples", ErrTrimWindow, start, end, s.Samples)
	}
	if s.Data8 != nil {
		s.Data8 = append([]int8(nil), s.Data8[start:end]...)
	}
	if s.Data16 != nil {
		s.Data16 = append([]int16(nil), s.Data16[start:end]...)
	}
	s.Samples = end - start
	return nil
}

// ExpandNibbles returns a copy of data with the two nibbles of each byte swapped.
func ExpandNibbles(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b<<4 | b>>4
	}
	return out
}

var ymzIndexScale = [8]int{0xe6, 0xe6, 0xe6, 0xe6, 0x133, 0x199, 0x200, 0x266}

// DecodeYMZ expands a YMZ ADPCM stream into 16-bit PCM, two samples per
// byte, high nibble first.
func DecodeYMZ(data []byte) []int16 {
	out := make([]int16, 0, len(data)*2)
	signal, step := 0, 0x7f
	for _, b := range data {
		for _, nib := range [2]byte{b >> 4, b & 0x0f} {
			diff := int(nib&7)*2 + 1
			if nib&8 != 0 {
				diff = -diff
			}
			signal = min(max(signal+step*diff/8, -32768), 32767)
			step = min(max(step*ymzIndexScale[nib&7]>>8, 0x7f), 0x6000)
			out = append(out, int16(signal))
		}
	}
	return out
}

// LegacyRate maps the module sample rate code to Hz.
func LegacyRate(code uint8) int {
	switch code {
	case 1:
		return 8000
	case 2:
		return 11025
	case 3:
		return 16000
	case 4:
		return 22050
	case 5:
		return 32000
	default:
		return 4000
	}
}
